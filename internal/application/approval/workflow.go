// Package approval implementa el flujo de aprobación: captura de operaciones pendientes,
// aprobación (que ejecuta el efecto real) y rechazo, más las necesidades (besoins).
package approval

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/pkg/logger"
)

// Workflow orquesta las PendingOperation. Cada decisión es una sola transacción:
// bloqueo de la fila, ejecutor y cambio de estado condicional se confirman o revierten juntos.
type Workflow struct {
	tx        repository.TxRunner
	ops       repository.PendingOperationRepository
	executors Executors
	effects   *stock.Effects
	metrics   ports.MetricsRecorder
	log       *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewWorkflow construye el flujo. metrics y log pueden ser nil.
func NewWorkflow(
	tx repository.TxRunner,
	ops repository.PendingOperationRepository,
	executors Executors,
	effects *stock.Effects,
	metrics ports.MetricsRecorder,
	log *logger.Logger,
) *Workflow {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Workflow{
		tx:        tx,
		ops:       ops,
		executors: executors,
		effects:   effects,
		metrics:   metrics,
		log:       log.Component("approval"),
		tracer:    otel.Tracer("medstock/approval"),
		now:       time.Now,
	}
}

// Submit valida el payload contra su tipo y lo guarda como pendiente. Sin otros efectos.
func (w *Workflow) Submit(ctx context.Context, actor entity.Actor, t entity.OperationType, data json.RawMessage) (*entity.PendingOperation, error) {
	if !actor.Can(entity.CapOperationsSubmit) {
		return nil, domain.ErrForbidden
	}
	if _, err := entity.DecodeOperationPayload(t, data); err != nil {
		return nil, err
	}
	op := &entity.PendingOperation{
		Type:      t,
		Data:      append(json.RawMessage(nil), data...),
		UserID:    actor.UserID,
		Status:    entity.RequestStatusPending,
		CreatedAt: w.now().UTC(),
	}
	if err := w.ops.Create(ctx, op); err != nil {
		return nil, err
	}
	w.log.Info().Int64("operation_id", op.ID).Str("type", string(t)).Int64("user_id", actor.UserID).Msg("operación enviada a aprobación")
	w.effects.InvalidateSummary(ctx)
	w.effects.Publish(ctx, ports.DomainEvent{
		Type:       ports.EventOperationSubmitted,
		EntityType: "pending_operation",
		EntityID:   op.ID,
		ActorID:    actor.UserID,
		Data:       map[string]any{"type": string(t)},
	})
	return op, nil
}

// Approve ejecuta la operación y la marca approved. Si el ejecutor falla, todo se revierte
// y la operación sigue pendiente.
func (w *Workflow) Approve(ctx context.Context, actor entity.Actor, id int64) (*entity.PendingOperation, error) {
	ctx, span := w.tracer.Start(ctx, "approval.Approve", trace.WithAttributes(attribute.Int64("operation_id", id)))
	defer span.End()

	if !actor.CanDecide() {
		return nil, domain.ErrForbidden
	}
	now := w.now().UTC()
	var (
		op     *entity.PendingOperation
		result ExecResult
	)
	err := w.tx.Run(ctx, func(repos repository.TxRepos) error {
		locked, err := repos.Operations.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !locked.IsPending() {
			return domain.ErrInvalidState
		}
		payload, err := locked.Payload()
		if err != nil {
			return err
		}
		exec, ok := w.executors[locked.Type]
		if !ok {
			return domain.ErrUnsupportedOperation
		}
		result, err = exec(ctx, repos, payload, entity.Origin{RequestedBy: locked.UserID, ApprovedBy: actor.UserID, At: now})
		if err != nil {
			return err
		}
		if err := repos.Operations.MarkDecided(ctx, id, repository.Decision{
			Status:     entity.RequestStatusApproved,
			ApproverID: actor.UserID,
			At:         now,
		}); err != nil {
			return err
		}
		locked.Status = entity.RequestStatusApproved
		locked.ApprovedBy = &actor.UserID
		locked.ApprovedAt = &now
		op = locked
		return nil
	})
	if err != nil {
		span.RecordError(err)
		w.log.Warn().Err(err).Int64("operation_id", id).Int64("approver_id", actor.UserID).Msg("aprobación fallida")
		return nil, err
	}

	w.metrics.Decision(string(op.Type), entity.RequestStatusApproved)
	w.log.Info().Int64("operation_id", op.ID).Str("type", string(op.Type)).Int64("approver_id", actor.UserID).
		Str("entity_type", result.EntityType).Int64("entity_id", result.EntityID).Msg("operación aprobada")
	w.effects.Publish(ctx, ports.DomainEvent{
		Type:       ports.EventOperationApproved,
		EntityType: "pending_operation",
		EntityID:   op.ID,
		ActorID:    actor.UserID,
		Data: map[string]any{
			"type":        string(op.Type),
			"entity_type": result.EntityType,
			"entity_id":   result.EntityID,
		},
	})
	if len(result.ProductIDs) > 0 {
		w.effects.StockChanged(ctx, actor.UserID, result.EntityType, result.EntityID, result.ProductIDs)
	} else {
		w.effects.InvalidateSummary(ctx)
	}
	return op, nil
}

// Reject marca la operación rejected sin ejecutar nada. Motivo vacío usa el genérico.
func (w *Workflow) Reject(ctx context.Context, actor entity.Actor, id int64, reason string) (*entity.PendingOperation, error) {
	ctx, span := w.tracer.Start(ctx, "approval.Reject", trace.WithAttributes(attribute.Int64("operation_id", id)))
	defer span.End()

	if !actor.CanDecide() {
		return nil, domain.ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = entity.DefaultRejectionReason
	}
	now := w.now().UTC()
	var op *entity.PendingOperation
	err := w.tx.Run(ctx, func(repos repository.TxRepos) error {
		locked, err := repos.Operations.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !locked.IsPending() {
			return domain.ErrInvalidState
		}
		if err := repos.Operations.MarkDecided(ctx, id, repository.Decision{
			Status:     entity.RequestStatusRejected,
			ApproverID: actor.UserID,
			Reason:     &reason,
			At:         now,
		}); err != nil {
			return err
		}
		locked.Status = entity.RequestStatusRejected
		locked.ApprovedBy = &actor.UserID
		locked.ApprovedAt = &now
		locked.RejectionReason = &reason
		op = locked
		return nil
	})
	if err != nil {
		span.RecordError(err)
		w.log.Warn().Err(err).Int64("operation_id", id).Int64("approver_id", actor.UserID).Msg("rechazo fallido")
		return nil, err
	}

	w.metrics.Decision(string(op.Type), entity.RequestStatusRejected)
	w.log.Info().Int64("operation_id", op.ID).Str("type", string(op.Type)).Int64("approver_id", actor.UserID).Msg("operación rechazada")
	w.effects.InvalidateSummary(ctx)
	w.effects.Publish(ctx, ports.DomainEvent{
		Type:       ports.EventOperationRejected,
		EntityType: "pending_operation",
		EntityID:   op.ID,
		ActorID:    actor.UserID,
		Data:       map[string]any{"type": string(op.Type), "reason": reason},
	})
	return op, nil
}

// Get devuelve una operación al solicitante o a quien puede aprobar.
func (w *Workflow) Get(ctx context.Context, actor entity.Actor, id int64) (*entity.PendingOperation, error) {
	op, err := w.ops.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.UserID != actor.UserID && !actor.CanDecide() {
		return nil, domain.ErrForbidden
	}
	return op, nil
}

// List bandeja del aprobador (todas las operaciones, filtrables por estado).
func (w *Workflow) List(ctx context.Context, actor entity.Actor, filter repository.RequestFilter) ([]*entity.PendingOperation, error) {
	if !actor.CanDecide() {
		return nil, domain.ErrForbidden
	}
	filter.Page = filter.Page.Normalize()
	return w.ops.List(ctx, filter)
}

// Mine operaciones enviadas por el actor.
func (w *Workflow) Mine(ctx context.Context, actor entity.Actor, filter repository.RequestFilter) ([]*entity.PendingOperation, error) {
	filter.UserID = actor.UserID
	filter.Page = filter.Page.Normalize()
	return w.ops.List(ctx, filter)
}
