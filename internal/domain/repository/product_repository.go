package repository

import (
	"context"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// ProductFilter filtros del listado de productos.
type ProductFilter struct {
	Search   string
	Category string
	Page     Page
}

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE); solo tiene sentido dentro de una tx.
	GetForUpdate(ctx context.Context, id int64) (*entity.Product, error)
	GetByRef(ctx context.Context, ref string) (*entity.Product, error)
	// GetByName búsqueda por nombre exacto (normalizado NFC).
	GetByName(ctx context.Context, name string) (*entity.Product, error)
	// LockName serializa hasta el fin de la tx la búsqueda-o-alta de un producto por nombre.
	LockName(ctx context.Context, name string) error
	// Update no toca Quantity: se maneja vía motor de stock.
	Update(ctx context.Context, product *entity.Product) error
	// AdjustQuantity suma delta de forma atómica y devuelve la nueva cantidad.
	// ErrNotFound si el producto no existe.
	AdjustQuantity(ctx context.Context, id int64, delta int) (int, error)
	SetQuantity(ctx context.Context, id int64, quantity int) error
	List(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
	ListCritical(ctx context.Context) ([]*entity.Product, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
}
