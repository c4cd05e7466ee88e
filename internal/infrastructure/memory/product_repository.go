package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// ProductRepository implementa repository.ProductRepository.
type ProductRepository struct {
	h handle
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func refTaken(t *tables, ref *string, exceptID int64) bool {
	if ref == nil {
		return false
	}
	for id, p := range t.products {
		if id != exceptID && p.Ref != nil && *p.Ref == *ref {
			return true
		}
	}
	return false
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	return r.h.read(func(t *tables) error {
		if refTaken(t, p.Ref, 0) {
			return domain.ErrDuplicate
		}
		p.ID = t.nextID()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		t.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	var out *entity.Product
	err := r.h.read(func(t *tables) error {
		p, ok := t.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *ProductRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *ProductRepository) GetByRef(ctx context.Context, ref string) (*entity.Product, error) {
	return r.find(func(p entity.Product) bool { return p.Ref != nil && *p.Ref == ref })
}

func (r *ProductRepository) GetByName(ctx context.Context, name string) (*entity.Product, error) {
	name = entity.NormalizeName(name)
	return r.find(func(p entity.Product) bool { return entity.NormalizeName(p.Name) == name })
}

// LockName no hace nada: TxRunner ya serializa las transacciones del Store.
func (r *ProductRepository) LockName(ctx context.Context, name string) error {
	return nil
}

func (r *ProductRepository) find(match func(entity.Product) bool) (*entity.Product, error) {
	var out *entity.Product
	err := r.h.read(func(t *tables) error {
		var best *entity.Product
		for _, p := range t.products {
			if match(p) && (best == nil || p.ID < best.ID) {
				best = &p
			}
		}
		if best == nil {
			return domain.ErrNotFound
		}
		out = best
		return nil
	})
	return out, err
}

func (r *ProductRepository) Update(ctx context.Context, p *entity.Product) error {
	return r.h.read(func(t *tables) error {
		cur, ok := t.products[p.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if refTaken(t, p.Ref, p.ID) {
			return domain.ErrDuplicate
		}
		next := *p
		next.Quantity = cur.Quantity
		next.CreatedAt = cur.CreatedAt
		t.products[p.ID] = next
		p.Quantity = cur.Quantity
		return nil
	})
}

func (r *ProductRepository) AdjustQuantity(ctx context.Context, id int64, delta int) (int, error) {
	var qty int
	err := r.h.read(func(t *tables) error {
		p, ok := t.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		p.Quantity += delta
		p.UpdatedAt = time.Now().UTC()
		t.products[id] = p
		qty = p.Quantity
		return nil
	})
	return qty, err
}

func (r *ProductRepository) SetQuantity(ctx context.Context, id int64, quantity int) error {
	return r.h.read(func(t *tables) error {
		p, ok := t.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		p.Quantity = quantity
		p.UpdatedAt = time.Now().UTC()
		t.products[id] = p
		return nil
	})
}

func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out, err := r.list(func(p entity.Product) bool {
		if filter.Category != "" && p.Category != filter.Category {
			return false
		}
		if search == "" {
			return true
		}
		if strings.Contains(strings.ToLower(p.Name), search) {
			return true
		}
		return p.Ref != nil && strings.Contains(strings.ToLower(*p.Ref), search)
	})
	return paginate(out, filter.Page), err
}

func (r *ProductRepository) ListCritical(ctx context.Context) ([]*entity.Product, error) {
	return r.list(func(p entity.Product) bool { return p.IsCritical() })
}

func (r *ProductRepository) list(match func(entity.Product) bool) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.h.read(func(t *tables) error {
		for _, p := range t.products {
			if match(p) {
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.h.read(func(t *tables) error {
		n = len(t.products)
		return nil
	})
	return n, err
}

// Delete falla con ErrConflict si el producto tiene historial (como la FK RESTRICT en Postgres).
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.products[id]; !ok {
			return domain.ErrNotFound
		}
		for _, m := range t.movements {
			if m.ProductID == id {
				return domain.ErrConflict
			}
		}
		for _, it := range t.receiptItems {
			if it.ProductID == id {
				return domain.ErrConflict
			}
		}
		for _, it := range t.inventoryItems {
			if it.ProductID == id {
				return domain.ErrConflict
			}
		}
		delete(t.products, id)
		return nil
	})
}
