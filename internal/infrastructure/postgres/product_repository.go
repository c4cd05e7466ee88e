package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, ref, name, category, quantity, price, critical_level, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.Ref, &p.Name, &p.Category, &p.Quantity, &p.Price, &p.CriticalLevel, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un nuevo producto. Quantity inicia en 0.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (ref, name, category, quantity, price, critical_level, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $6, $7)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		product.Ref, product.Name, product.Category, product.Price, product.CriticalLevel,
		product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	product.Quantity = 0
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "get product")
	}
	return p, nil
}

// GetForUpdate bloquea la fila del producto hasta el fin de la transacción.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr(err, "lock product")
	}
	return p, nil
}

// GetByRef obtiene un producto por su referencia interna.
func (r *ProductRepo) GetByRef(ctx context.Context, ref string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE ref = $1`, ref))
	if err != nil {
		return nil, notFoundOr(err, "get product by ref")
	}
	return p, nil
}

// GetByName búsqueda exacta; los nombres se guardan ya normalizados en NFC.
func (r *ProductRepo) GetByName(ctx context.Context, name string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE name = $1 ORDER BY id LIMIT 1`,
		entity.NormalizeName(name)))
	if err != nil {
		return nil, notFoundOr(err, "get product by name")
	}
	return p, nil
}

// LockName toma un advisory lock de transacción sobre el nombre normalizado.
// Fuera de una tx se libera al terminar la sentencia.
func (r *ProductRepo) LockName(ctx context.Context, name string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, entity.NormalizeName(name)); err != nil {
		return fmt.Errorf("lock product name: %w", err)
	}
	return nil
}

// Update actualiza un producto existente. No permite modificar Quantity (se maneja vía motor de stock).
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products SET ref = $2, name = $3, category = $4, price = $5, critical_level = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		product.ID, product.Ref, product.Name, product.Category, product.Price, product.CriticalLevel, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update product: %w", err)
	}
	return mustAffect(tag)
}

// AdjustQuantity suma delta en una sola sentencia; la fila queda bloqueada hasta el commit.
func (r *ProductRepo) AdjustQuantity(ctx context.Context, id int64, delta int) (int, error) {
	var qty int
	err := r.q.QueryRow(ctx,
		`UPDATE products SET quantity = quantity + $2, updated_at = now() WHERE id = $1 RETURNING quantity`,
		id, delta,
	).Scan(&qty)
	if err != nil {
		return 0, notFoundOr(err, "adjust product quantity")
	}
	return qty, nil
}

// SetQuantity fija la cantidad (ajuste de inventario).
func (r *ProductRepo) SetQuantity(ctx context.Context, id int64, quantity int) error {
	tag, err := r.q.Exec(ctx, `UPDATE products SET quantity = $2, updated_at = now() WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("set product quantity: %w", err)
	}
	return mustAffect(tag)
}

// List lista productos con búsqueda por nombre/ref, filtro de categoría y paginación.
func (r *ProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	page := filter.Page.Normalize()
	var w where
	if filter.Search != "" {
		w.add("(name ILIKE '%%' || $%[1]d || '%%' OR ref ILIKE '%%' || $%[1]d || '%%')", filter.Search)
	}
	if filter.Category != "" {
		w.add("category = $%d", filter.Category)
	}
	query := `SELECT ` + productColumns + ` FROM products` + w.sql() + ` ORDER BY name, id` + w.page(page.Limit, page.Offset)
	return r.query(ctx, query, w.args...)
}

// ListCritical productos con quantity <= critical_level.
func (r *ProductRepo) ListCritical(ctx context.Context) ([]*entity.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE quantity <= critical_level ORDER BY quantity - critical_level, name`)
}

// Count número total de productos.
func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Delete elimina un producto. Con movimientos o líneas asociadas devuelve ErrConflict.
func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: el producto tiene historial", domain.ErrConflict)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return mustAffect(tag)
}

func (r *ProductRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
