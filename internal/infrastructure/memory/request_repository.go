package memory

import (
	"context"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// PendingOperationRepository implementa repository.PendingOperationRepository.
type PendingOperationRepository struct {
	h handle
}

var _ repository.PendingOperationRepository = (*PendingOperationRepository)(nil)

func (r *PendingOperationRepository) Create(ctx context.Context, op *entity.PendingOperation) error {
	return r.h.read(func(t *tables) error {
		op.ID = t.nextID()
		if op.CreatedAt.IsZero() {
			op.CreatedAt = time.Now().UTC()
		}
		t.operations[op.ID] = *op
		return nil
	})
}

func (r *PendingOperationRepository) GetByID(ctx context.Context, id int64) (*entity.PendingOperation, error) {
	var out *entity.PendingOperation
	err := r.h.read(func(t *tables) error {
		op, ok := t.operations[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &op
		return nil
	})
	return out, err
}

func (r *PendingOperationRepository) GetForUpdate(ctx context.Context, id int64) (*entity.PendingOperation, error) {
	return r.GetByID(ctx, id)
}

func (r *PendingOperationRepository) MarkDecided(ctx context.Context, id int64, d repository.Decision) error {
	return r.h.read(func(t *tables) error {
		op, ok := t.operations[id]
		if !ok {
			return domain.ErrNotFound
		}
		if !op.IsPending() {
			return domain.ErrInvalidState
		}
		op.Status = d.Status
		op.ApprovedBy = &d.ApproverID
		op.ApprovedAt = &d.At
		op.RejectionReason = d.Reason
		t.operations[id] = op
		return nil
	})
}

func (r *PendingOperationRepository) List(ctx context.Context, f repository.RequestFilter) ([]*entity.PendingOperation, error) {
	var out []*entity.PendingOperation
	err := r.h.read(func(t *tables) error {
		for _, op := range t.operations {
			if (f.Status == "" || op.Status == f.Status) && (f.UserID == 0 || op.UserID == f.UserID) {
				out = append(out, &op)
			}
		}
		return nil
	})
	newestFirst(out, func(op *entity.PendingOperation) int64 { return op.ID })
	return paginate(out, f.Page), err
}

func (r *PendingOperationRepository) CountPending(ctx context.Context) (int, error) {
	n := 0
	err := r.h.read(func(t *tables) error {
		for _, op := range t.operations {
			if op.IsPending() {
				n++
			}
		}
		return nil
	})
	return n, err
}

// NeedRepository implementa repository.NeedRepository.
type NeedRepository struct {
	h handle
}

var _ repository.NeedRepository = (*NeedRepository)(nil)

func (r *NeedRepository) Create(ctx context.Context, n *entity.Need) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.products[n.ProductID]; !ok {
			return domain.ErrNotFound
		}
		n.ID = t.nextID()
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		t.needs[n.ID] = *n
		return nil
	})
}

func (r *NeedRepository) GetByID(ctx context.Context, id int64) (*entity.Need, error) {
	var out *entity.Need
	err := r.h.read(func(t *tables) error {
		n, ok := t.needs[id]
		if !ok {
			return domain.ErrNotFound
		}
		if p, ok := t.products[n.ProductID]; ok {
			n.ProductName = p.Name
		}
		out = &n
		return nil
	})
	return out, err
}

func (r *NeedRepository) MarkDecided(ctx context.Context, id int64, d repository.Decision) error {
	return r.h.read(func(t *tables) error {
		n, ok := t.needs[id]
		if !ok {
			return domain.ErrNotFound
		}
		if n.Status != entity.RequestStatusPending {
			return domain.ErrInvalidState
		}
		n.Status = d.Status
		n.ApprovedBy = &d.ApproverID
		n.ApprovedAt = &d.At
		n.RejectionReason = d.Reason
		t.needs[id] = n
		return nil
	})
}

func (r *NeedRepository) List(ctx context.Context, f repository.RequestFilter) ([]*entity.Need, error) {
	var out []*entity.Need
	err := r.h.read(func(t *tables) error {
		for _, n := range t.needs {
			if (f.Status == "" || n.Status == f.Status) && (f.UserID == 0 || n.UserID == f.UserID) {
				if p, ok := t.products[n.ProductID]; ok {
					n.ProductName = p.Name
				}
				out = append(out, &n)
			}
		}
		return nil
	})
	newestFirst(out, func(n *entity.Need) int64 { return n.ID })
	return paginate(out, f.Page), err
}

func (r *NeedRepository) CountPending(ctx context.Context) (int, error) {
	count := 0
	err := r.h.read(func(t *tables) error {
		for _, n := range t.needs {
			if n.Status == entity.RequestStatusPending {
				count++
			}
		}
		return nil
	})
	return count, err
}
