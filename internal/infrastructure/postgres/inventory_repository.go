package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo conteos físicos (usable con pool o tx).
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

const inventoryColumns = `id, label, counted_at, notes, created_by, created_at`

func scanInventory(row rowScanner) (*entity.Inventory, error) {
	var inv entity.Inventory
	if err := row.Scan(&inv.ID, &inv.Label, &inv.CountedAt, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create persiste la cabecera del conteo.
func (r *InventoryRepo) Create(ctx context.Context, inv *entity.Inventory) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO inventories (label, counted_at, notes, created_by, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		inv.Label, inv.CountedAt, inv.Notes, inv.CreatedBy, inv.CreatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

// CreateItem persiste una línea con la foto del stock teórico.
func (r *InventoryRepo) CreateItem(ctx context.Context, it *entity.InventoryItem) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO inventory_items (inventory_id, product_id, theoretical_qty, counted_qty, variance)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		it.InventoryID, it.ProductID, it.TheoreticalQty, it.CountedQty, it.Variance,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("insert inventory item: %w", err)
	}
	return nil
}

// GetByID devuelve el conteo con sus líneas.
func (r *InventoryRepo) GetByID(ctx context.Context, id int64) (*entity.Inventory, error) {
	inv, err := scanInventory(r.q.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventories WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "get inventory")
	}
	rows, err := r.q.Query(ctx, `
		SELECT i.id, i.inventory_id, i.product_id, p.name, i.theoretical_qty, i.counted_qty, i.variance
		FROM inventory_items i JOIN products p ON p.id = i.product_id
		WHERE i.inventory_id = $1 ORDER BY i.id`, id)
	if err != nil {
		return nil, fmt.Errorf("list inventory items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.InventoryItem
		if err := rows.Scan(&it.ID, &it.InventoryID, &it.ProductID, &it.ProductName, &it.TheoreticalQty, &it.CountedQty, &it.Variance); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, rows.Err()
}

// List cabeceras (sin líneas), más recientes primero.
func (r *InventoryRepo) List(ctx context.Context, page repository.Page) ([]*entity.Inventory, error) {
	page = page.Normalize()
	rows, err := r.q.Query(ctx,
		`SELECT `+inventoryColumns+` FROM inventories ORDER BY counted_at DESC, id DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list inventories: %w", err)
	}
	defer rows.Close()
	var list []*entity.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}
