package repository

import (
	"context"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// Decision datos de la resolución de una solicitud.
type Decision struct {
	Status     string // approved | rejected
	ApproverID int64
	Reason     *string
	At         time.Time
}

// RequestFilter filtros de listado de solicitudes (operaciones y necesidades).
type RequestFilter struct {
	Status string
	UserID int64 // 0 = todos
	Page   Page
}

// PendingOperationRepository define el puerto de persistencia para PendingOperation.
type PendingOperationRepository interface {
	Create(ctx context.Context, op *entity.PendingOperation) error
	GetByID(ctx context.Context, id int64) (*entity.PendingOperation, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.PendingOperation, error)
	// MarkDecided actualiza solo si status = 'pending'; si no afecta filas devuelve ErrInvalidState
	// (o ErrNotFound si la fila no existe).
	MarkDecided(ctx context.Context, id int64, d Decision) error
	List(ctx context.Context, filter RequestFilter) ([]*entity.PendingOperation, error)
	CountPending(ctx context.Context) (int, error)
}

// NeedRepository define el puerto de persistencia para Need.
type NeedRepository interface {
	Create(ctx context.Context, need *entity.Need) error
	GetByID(ctx context.Context, id int64) (*entity.Need, error)
	MarkDecided(ctx context.Context, id int64, d Decision) error
	List(ctx context.Context, filter RequestFilter) ([]*entity.Need, error)
	CountPending(ctx context.Context) (int, error)
}
