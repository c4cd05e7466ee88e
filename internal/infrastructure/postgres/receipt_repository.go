package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

var _ repository.ReceiptRepository = (*ReceiptRepo)(nil)

// ReceiptRepo recepciones y sus líneas (usable con pool o tx).
type ReceiptRepo struct {
	q Querier
}

// NewReceiptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReceiptRepository(q Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

const receiptColumns = `id, ref, supplier, agent, received_at, status, approved_by, approved_at, created_by, created_at`

func scanReceipt(row rowScanner) (*entity.Receipt, error) {
	var rc entity.Receipt
	err := row.Scan(&rc.ID, &rc.Ref, &rc.Supplier, &rc.Agent, &rc.ReceivedAt, &rc.Status,
		&rc.ApprovedBy, &rc.ApprovedAt, &rc.CreatedBy, &rc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// Create persiste la cabecera. Ref duplicada devuelve ErrDuplicate.
func (r *ReceiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	query := `
		INSERT INTO receipts (ref, supplier, agent, received_at, status, approved_by, approved_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		rc.Ref, rc.Supplier, rc.Agent, rc.ReceivedAt, rc.Status, rc.ApprovedBy, rc.ApprovedAt, rc.CreatedBy, rc.CreatedAt,
	).Scan(&rc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// CreateItem persiste una línea.
func (r *ReceiptRepo) CreateItem(ctx context.Context, it *entity.ReceiptItem) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO receipt_items (receipt_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4) RETURNING id`,
		it.ReceiptID, it.ProductID, it.Quantity, it.UnitPrice,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("insert receipt item: %w", err)
	}
	return nil
}

// GetByID devuelve la recepción con sus líneas.
func (r *ReceiptRepo) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	rc, err := scanReceipt(r.q.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "get receipt")
	}
	if rc.Items, err = r.items(ctx, rc.ID); err != nil {
		return nil, err
	}
	return rc, nil
}

// GetByRef devuelve la recepción con sus líneas.
func (r *ReceiptRepo) GetByRef(ctx context.Context, ref string) (*entity.Receipt, error) {
	rc, err := scanReceipt(r.q.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE ref = $1`, ref))
	if err != nil {
		return nil, notFoundOr(err, "get receipt by ref")
	}
	if rc.Items, err = r.items(ctx, rc.ID); err != nil {
		return nil, err
	}
	return rc, nil
}

// List cabeceras con líneas, más recientes primero.
func (r *ReceiptRepo) List(ctx context.Context, page repository.Page) ([]*entity.Receipt, error) {
	page = page.Normalize()
	rows, err := r.q.Query(ctx,
		`SELECT `+receiptColumns+` FROM receipts ORDER BY received_at DESC, id DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	var list []*entity.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		list = append(list, rc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Las líneas se cargan después de cerrar rows: una tx pgx no admite consultas intercaladas.
	for _, rc := range list {
		if rc.Items, err = r.items(ctx, rc.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *ReceiptRepo) items(ctx context.Context, receiptID int64) ([]entity.ReceiptItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT i.id, i.receipt_id, i.product_id, p.name, i.quantity, i.unit_price
		FROM receipt_items i JOIN products p ON p.id = i.product_id
		WHERE i.receipt_id = $1 ORDER BY i.id`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("list receipt items: %w", err)
	}
	defer rows.Close()
	var items []entity.ReceiptItem
	for rows.Next() {
		var it entity.ReceiptItem
		if err := rows.Scan(&it.ID, &it.ReceiptID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan receipt item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
