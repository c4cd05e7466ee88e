package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo historial de salidas y ajustes (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `m.id, m.product_id, m.type, m.quantity, m.movement_date, m.exit_type, m.destination,
	m.status, m.reference, m.notes, m.created_by, m.created_at`

func scanMovement(row rowScanner) (*entity.StockMovement, error) {
	var m entity.StockMovement
	err := row.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.MovementDate, &m.ExitType, &m.Destination,
		&m.Status, &m.Reference, &m.Notes, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create registra un movimiento. La cantidad ya fue aplicada por el motor de stock.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (product_id, type, quantity, movement_date, exit_type, destination, status, reference, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.ProductID, m.Type, m.Quantity, m.MovementDate, m.ExitType, m.Destination, m.Status,
		m.Reference, m.Notes, m.CreatedBy, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento.
func (r *StockMovementRepo) GetByID(ctx context.Context, id int64) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements m WHERE m.id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "get stock movement")
	}
	return m, nil
}

// List historial filtrado por producto, tipo y rango de fechas (más recientes primero).
func (r *StockMovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	page := filter.Page.Normalize()
	var w where
	if filter.ProductID > 0 {
		w.add("m.product_id = $%d", filter.ProductID)
	}
	if filter.Type != "" {
		w.add("m.type = $%d", filter.Type)
	}
	if filter.From != nil {
		w.add("m.movement_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		w.add("m.movement_date <= $%d", *filter.To)
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements m` + w.sql() +
		` ORDER BY m.movement_date DESC, m.id DESC` + w.page(page.Limit, page.Offset)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
