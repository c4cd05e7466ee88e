package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

var (
	_ repository.PendingOperationRepository = (*PendingOperationRepo)(nil)
	_ repository.NeedRepository             = (*NeedRepo)(nil)
)

// PendingOperationRepo solicitudes de escritura sujetas a aprobación (usable con pool o tx).
type PendingOperationRepo struct {
	q Querier
}

// NewPendingOperationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPendingOperationRepository(q Querier) *PendingOperationRepo {
	return &PendingOperationRepo{q: q}
}

const operationColumns = `id, type, data, user_id, status, approved_by, rejection_reason, approved_at, created_at`

func scanOperation(row rowScanner) (*entity.PendingOperation, error) {
	var op entity.PendingOperation
	var data []byte
	err := row.Scan(&op.ID, &op.Type, &data, &op.UserID, &op.Status, &op.ApprovedBy, &op.RejectionReason, &op.ApprovedAt, &op.CreatedAt)
	if err != nil {
		return nil, err
	}
	op.Data = data
	return &op, nil
}

// Create persiste la solicitud en estado pending.
func (r *PendingOperationRepo) Create(ctx context.Context, op *entity.PendingOperation) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO pending_operations (type, data, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		op.Type, []byte(op.Data), op.UserID, op.Status, op.CreatedAt,
	).Scan(&op.ID)
	if err != nil {
		return fmt.Errorf("insert pending operation: %w", err)
	}
	return nil
}

// GetByID obtiene una solicitud.
func (r *PendingOperationRepo) GetByID(ctx context.Context, id int64) (*entity.PendingOperation, error) {
	op, err := scanOperation(r.q.QueryRow(ctx, `SELECT `+operationColumns+` FROM pending_operations WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "get pending operation")
	}
	return op, nil
}

// GetForUpdate bloquea la solicitud; una segunda decisión concurrente espera aquí y después ve el estado final.
func (r *PendingOperationRepo) GetForUpdate(ctx context.Context, id int64) (*entity.PendingOperation, error) {
	op, err := scanOperation(r.q.QueryRow(ctx, `SELECT `+operationColumns+` FROM pending_operations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr(err, "lock pending operation")
	}
	return op, nil
}

// MarkDecided transición única pending → approved | rejected.
func (r *PendingOperationRepo) MarkDecided(ctx context.Context, id int64, d repository.Decision) error {
	return markDecided(ctx, r.q, "pending_operations", id, d)
}

// List solicitudes filtradas por estado y solicitante, más recientes primero.
func (r *PendingOperationRepo) List(ctx context.Context, filter repository.RequestFilter) ([]*entity.PendingOperation, error) {
	w, tail := requestWhere(filter, "")
	rows, err := r.q.Query(ctx, `SELECT `+operationColumns+` FROM pending_operations`+w.sql()+tail, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list pending operations: %w", err)
	}
	defer rows.Close()
	var list []*entity.PendingOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending operation: %w", err)
		}
		list = append(list, op)
	}
	return list, rows.Err()
}

// CountPending solicitudes pendientes.
func (r *PendingOperationRepo) CountPending(ctx context.Context) (int, error) {
	return countPending(ctx, r.q, "pending_operations")
}

// NeedRepo expresiones de necesidad (usable con pool o tx).
type NeedRepo struct {
	q Querier
}

// NewNeedRepository construye el adaptador. Pasar pool o tx (Querier).
func NewNeedRepository(q Querier) *NeedRepo {
	return &NeedRepo{q: q}
}

const needColumns = `n.id, n.product_id, p.name, n.quantity, n.reason, n.user_id, n.status,
	n.approved_by, n.rejection_reason, n.approved_at, n.created_at`

func scanNeed(row rowScanner) (*entity.Need, error) {
	var n entity.Need
	err := row.Scan(&n.ID, &n.ProductID, &n.ProductName, &n.Quantity, &n.Reason, &n.UserID, &n.Status,
		&n.ApprovedBy, &n.RejectionReason, &n.ApprovedAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create persiste la necesidad en estado pending.
func (r *NeedRepo) Create(ctx context.Context, n *entity.Need) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO needs (product_id, quantity, reason, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		n.ProductID, n.Quantity, n.Reason, n.UserID, n.Status, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert need: %w", err)
	}
	return nil
}

// GetByID obtiene una necesidad con el nombre del producto.
func (r *NeedRepo) GetByID(ctx context.Context, id int64) (*entity.Need, error) {
	n, err := scanNeed(r.q.QueryRow(ctx,
		`SELECT `+needColumns+` FROM needs n JOIN products p ON p.id = n.product_id WHERE n.id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "get need")
	}
	return n, nil
}

// MarkDecided transición única pending → approved | rejected.
func (r *NeedRepo) MarkDecided(ctx context.Context, id int64, d repository.Decision) error {
	return markDecided(ctx, r.q, "needs", id, d)
}

// List necesidades filtradas por estado y solicitante, más recientes primero.
func (r *NeedRepo) List(ctx context.Context, filter repository.RequestFilter) ([]*entity.Need, error) {
	w, tail := requestWhere(filter, "n.")
	rows, err := r.q.Query(ctx,
		`SELECT `+needColumns+` FROM needs n JOIN products p ON p.id = n.product_id`+w.sql()+tail, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list needs: %w", err)
	}
	defer rows.Close()
	var list []*entity.Need
	for rows.Next() {
		n, err := scanNeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan need: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// CountPending necesidades pendientes.
func (r *NeedRepo) CountPending(ctx context.Context) (int, error) {
	return countPending(ctx, r.q, "needs")
}

// markDecided actualiza solo si la fila sigue pending. Con 0 filas distingue inexistente de ya decidida.
func markDecided(ctx context.Context, q Querier, table string, id int64, d repository.Decision) error {
	tag, err := q.Exec(ctx, `
		UPDATE `+table+` SET status = $2, approved_by = $3, rejection_reason = $4, approved_at = $5
		WHERE id = $1 AND status = 'pending'`,
		id, d.Status, d.ApproverID, d.Reason, d.At,
	)
	if err != nil {
		return fmt.Errorf("decide %s: %w", table, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidState
}

func countPending(ctx context.Context, q Querier, table string) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE status = 'pending'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// requestWhere filtros comunes; prefix es el alias de tabla ("n.") cuando hay JOIN.
func requestWhere(filter repository.RequestFilter, prefix string) (*where, string) {
	page := filter.Page.Normalize()
	w := &where{}
	if filter.Status != "" {
		w.add(prefix+"status = $%d", filter.Status)
	}
	if filter.UserID > 0 {
		w.add(prefix+"user_id = $%d", filter.UserID)
	}
	order := fmt.Sprintf(" ORDER BY %[1]screated_at DESC, %[1]sid DESC", prefix)
	return w, order + w.page(page.Limit, page.Offset)
}
