package stock

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// StockOutService registra salidas de stock.
type StockOutService struct {
	tx        repository.TxRunner
	movements repository.StockMovementRepository
	engine    *Engine
	effects   *Effects
	now       func() time.Time
}

// NewStockOutService construye el servicio.
func NewStockOutService(
	tx repository.TxRunner,
	movements repository.StockMovementRepository,
	engine *Engine,
	effects *Effects,
) *StockOutService {
	return &StockOutService{tx: tx, movements: movements, engine: engine, effects: effects, now: time.Now}
}

// Create camino directo de una salida.
func (s *StockOutService) Create(ctx context.Context, actor entity.Actor, in entity.StockOutPayload) (*entity.StockMovement, error) {
	if !actor.Can(entity.CapStockOutsCreate) {
		return nil, domain.ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	origin := entity.Origin{RequestedBy: actor.UserID, ApprovedBy: actor.UserID, At: s.now().UTC()}

	var mov *entity.StockMovement
	err := s.tx.Run(ctx, func(repos repository.TxRepos) error {
		m, err := s.CreateInTx(ctx, repos, in, origin)
		mov = m
		return err
	})
	if err != nil {
		return nil, err
	}
	s.effects.StockChanged(ctx, actor.UserID, "stock_movement", mov.ID, []int64{mov.ProductID})
	return mov, nil
}

// CreateInTx resta la cantidad y deja el movimiento stockout.
// El estado es Complétée salvo para salidas Provisoire, que quedan sin estado.
func (s *StockOutService) CreateInTx(
	ctx context.Context,
	repos repository.TxRepos,
	in entity.StockOutPayload,
	origin entity.Origin,
) (*entity.StockMovement, error) {
	exitType := strings.TrimSpace(in.ExitType)
	if exitType == "" {
		exitType = entity.ExitTypeDefinitive
	}
	var status *string
	if exitType != entity.ExitTypeProvisional {
		completed := entity.MovementStatusCompleted
		status = &completed
	}

	if _, err := s.engine.ApplyStockOut(ctx, repos, in.ProductID, in.Quantity); err != nil {
		return nil, err
	}
	mov := &entity.StockMovement{
		ProductID:    in.ProductID,
		Type:         entity.MovementTypeStockOut,
		Quantity:     in.Quantity,
		MovementDate: in.MovementDate.OrNow(origin.At),
		ExitType:     exitType,
		Destination:  strings.TrimSpace(in.Destination),
		Status:       status,
		Notes:        in.Notes,
		CreatedBy:    origin.RequestedBy,
		CreatedAt:    origin.At,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// List historial de movimientos. Sin tipo explícito lista solo salidas.
func (s *StockOutService) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if filter.Type == "" {
		filter.Type = entity.MovementTypeStockOut
	}
	filter.Page = filter.Page.Normalize()
	return s.movements.List(ctx, filter)
}

// Get devuelve un movimiento.
func (s *StockOutService) Get(ctx context.Context, id int64) (*entity.StockMovement, error) {
	return s.movements.GetByID(ctx, id)
}
