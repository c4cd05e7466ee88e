package approval

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/pkg/logger"
)

// NeedService expresiones de necesidad. Aprobar una necesidad solo registra la decisión:
// el abastecimiento real llega después como recepción.
type NeedService struct {
	tx       repository.TxRunner
	needs    repository.NeedRepository
	products repository.ProductRepository
	effects  *stock.Effects
	metrics  ports.MetricsRecorder
	log      *logger.Logger
	now      func() time.Time
}

// NewNeedService construye el servicio.
func NewNeedService(
	tx repository.TxRunner,
	needs repository.NeedRepository,
	products repository.ProductRepository,
	effects *stock.Effects,
	metrics ports.MetricsRecorder,
	log *logger.Logger,
) *NeedService {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &NeedService{
		tx:       tx,
		needs:    needs,
		products: products,
		effects:  effects,
		metrics:  metrics,
		log:      log.Component("needs"),
		now:      time.Now,
	}
}

// Create registra una necesidad pendiente.
func (s *NeedService) Create(ctx context.Context, actor entity.Actor, in dto.CreateNeedRequest) (*entity.Need, error) {
	if !actor.Can(entity.CapNeedsCreate) {
		return nil, domain.ErrForbidden
	}
	v := domain.NewValidationError()
	if in.ProductID <= 0 {
		v.Add("product_id", "requerido")
	}
	if in.Quantity <= 0 {
		v.Add("quantity", "debe ser mayor que 0")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	need := &entity.Need{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    in.Quantity,
		Reason:      strings.TrimSpace(in.Reason),
		UserID:      actor.UserID,
		Status:      entity.RequestStatusPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.needs.Create(ctx, need); err != nil {
		return nil, err
	}
	s.effects.InvalidateSummary(ctx)
	return need, nil
}

// Approve marca la necesidad approved.
func (s *NeedService) Approve(ctx context.Context, actor entity.Actor, id int64) (*entity.Need, error) {
	return s.decide(ctx, actor, id, entity.RequestStatusApproved, nil)
}

// Reject marca la necesidad rejected.
func (s *NeedService) Reject(ctx context.Context, actor entity.Actor, id int64, reason string) (*entity.Need, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = entity.DefaultRejectionReason
	}
	return s.decide(ctx, actor, id, entity.RequestStatusRejected, &reason)
}

func (s *NeedService) decide(ctx context.Context, actor entity.Actor, id int64, status string, reason *string) (*entity.Need, error) {
	if !actor.CanDecide() {
		return nil, domain.ErrForbidden
	}
	now := s.now().UTC()
	var need *entity.Need
	err := s.tx.Run(ctx, func(repos repository.TxRepos) error {
		if err := repos.Needs.MarkDecided(ctx, id, repository.Decision{
			Status:     status,
			ApproverID: actor.UserID,
			Reason:     reason,
			At:         now,
		}); err != nil {
			return err
		}
		n, err := repos.Needs.GetByID(ctx, id)
		need = n
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Decision("need", status)
	s.log.Info().Int64("need_id", id).Str("status", status).Int64("approver_id", actor.UserID).Msg("necesidad decidida")
	s.effects.InvalidateSummary(ctx)
	s.effects.Publish(ctx, ports.DomainEvent{
		Type:       ports.EventNeedDecided,
		EntityType: "need",
		EntityID:   id,
		ActorID:    actor.UserID,
		Data:       map[string]any{"status": status, "product_id": need.ProductID},
	})
	return need, nil
}

// Get devuelve una necesidad al solicitante o a quien puede aprobar.
func (s *NeedService) Get(ctx context.Context, actor entity.Actor, id int64) (*entity.Need, error) {
	need, err := s.needs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if need.UserID != actor.UserID && !actor.CanDecide() {
		return nil, domain.ErrForbidden
	}
	return need, nil
}

// List quien aprueba ve todas; el resto solo las propias.
func (s *NeedService) List(ctx context.Context, actor entity.Actor, filter repository.RequestFilter) ([]*entity.Need, error) {
	if !actor.CanDecide() {
		filter.UserID = actor.UserID
	}
	filter.Page = filter.Page.Normalize()
	return s.needs.List(ctx, filter)
}
