package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// StockMovementRepository implementa repository.StockMovementRepository.
type StockMovementRepository struct {
	h handle
}

var _ repository.StockMovementRepository = (*StockMovementRepository)(nil)

func (r *StockMovementRepository) Create(ctx context.Context, m *entity.StockMovement) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.products[m.ProductID]; !ok {
			return domain.ErrNotFound
		}
		m.ID = t.nextID()
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		t.movements[m.ID] = *m
		return nil
	})
}

func (r *StockMovementRepository) GetByID(ctx context.Context, id int64) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := r.h.read(func(t *tables) error {
		m, ok := t.movements[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *StockMovementRepository) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.h.read(func(t *tables) error {
		for _, m := range t.movements {
			if f.ProductID != 0 && m.ProductID != f.ProductID {
				continue
			}
			if f.Type != "" && m.Type != f.Type {
				continue
			}
			if f.From != nil && m.MovementDate.Before(*f.From) {
				continue
			}
			if f.To != nil && m.MovementDate.After(*f.To) {
				continue
			}
			out = append(out, &m)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MovementDate.Equal(out[j].MovementDate) {
			return out[i].MovementDate.After(out[j].MovementDate)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, f.Page), err
}

// ReceiptRepository implementa repository.ReceiptRepository.
type ReceiptRepository struct {
	h handle
}

var _ repository.ReceiptRepository = (*ReceiptRepository)(nil)

func (r *ReceiptRepository) Create(ctx context.Context, rec *entity.Receipt) error {
	return r.h.read(func(t *tables) error {
		if rec.Ref != nil {
			for _, other := range t.receipts {
				if other.Ref != nil && *other.Ref == *rec.Ref {
					return domain.ErrDuplicate
				}
			}
		}
		rec.ID = t.nextID()
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		stored := *rec
		stored.Items = nil
		t.receipts[rec.ID] = stored
		return nil
	})
}

func (r *ReceiptRepository) CreateItem(ctx context.Context, it *entity.ReceiptItem) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.receipts[it.ReceiptID]; !ok {
			return domain.ErrNotFound
		}
		p, ok := t.products[it.ProductID]
		if !ok {
			return domain.ErrNotFound
		}
		it.ID = t.nextID()
		it.ProductName = p.Name
		t.receiptItems[it.ID] = *it
		return nil
	})
}

func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	var out *entity.Receipt
	err := r.h.read(func(t *tables) error {
		rec, ok := t.receipts[id]
		if !ok {
			return domain.ErrNotFound
		}
		rec.Items = receiptItems(t, id)
		out = &rec
		return nil
	})
	return out, err
}

func (r *ReceiptRepository) GetByRef(ctx context.Context, ref string) (*entity.Receipt, error) {
	var out *entity.Receipt
	err := r.h.read(func(t *tables) error {
		for _, rec := range t.receipts {
			if rec.Ref != nil && *rec.Ref == ref {
				rec.Items = receiptItems(t, rec.ID)
				out = &rec
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *ReceiptRepository) List(ctx context.Context, page repository.Page) ([]*entity.Receipt, error) {
	var out []*entity.Receipt
	err := r.h.read(func(t *tables) error {
		for _, rec := range t.receipts {
			rec.Items = receiptItems(t, rec.ID)
			out = append(out, &rec)
		}
		return nil
	})
	newestFirst(out, func(r *entity.Receipt) int64 { return r.ID })
	return paginate(out, page), err
}

func receiptItems(t *tables, receiptID int64) []entity.ReceiptItem {
	var items []entity.ReceiptItem
	for _, it := range t.receiptItems {
		if it.ReceiptID == receiptID {
			if p, ok := t.products[it.ProductID]; ok {
				it.ProductName = p.Name
			}
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// InventoryRepository implementa repository.InventoryRepository.
type InventoryRepository struct {
	h handle
}

var _ repository.InventoryRepository = (*InventoryRepository)(nil)

func (r *InventoryRepository) Create(ctx context.Context, inv *entity.Inventory) error {
	return r.h.read(func(t *tables) error {
		inv.ID = t.nextID()
		if inv.CreatedAt.IsZero() {
			inv.CreatedAt = time.Now().UTC()
		}
		stored := *inv
		stored.Items = nil
		t.inventories[inv.ID] = stored
		return nil
	})
}

func (r *InventoryRepository) CreateItem(ctx context.Context, it *entity.InventoryItem) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.inventories[it.InventoryID]; !ok {
			return domain.ErrNotFound
		}
		if _, ok := t.products[it.ProductID]; !ok {
			return domain.ErrNotFound
		}
		it.ID = t.nextID()
		t.inventoryItems[it.ID] = *it
		return nil
	})
}

func (r *InventoryRepository) GetByID(ctx context.Context, id int64) (*entity.Inventory, error) {
	var out *entity.Inventory
	err := r.h.read(func(t *tables) error {
		inv, ok := t.inventories[id]
		if !ok {
			return domain.ErrNotFound
		}
		inv.Items = inventoryItems(t, id)
		out = &inv
		return nil
	})
	return out, err
}

func (r *InventoryRepository) List(ctx context.Context, page repository.Page) ([]*entity.Inventory, error) {
	var out []*entity.Inventory
	err := r.h.read(func(t *tables) error {
		for _, inv := range t.inventories {
			out = append(out, &inv)
		}
		return nil
	})
	newestFirst(out, func(i *entity.Inventory) int64 { return i.ID })
	return paginate(out, page), err
}

func inventoryItems(t *tables, inventoryID int64) []entity.InventoryItem {
	var items []entity.InventoryItem
	for _, it := range t.inventoryItems {
		if it.InventoryID == inventoryID {
			if p, ok := t.products[it.ProductID]; ok {
				it.ProductName = p.Name
			}
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}
