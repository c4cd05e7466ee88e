package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// CreateProductRequest entrada para crear un producto. La cantidad inicial siempre es 0:
// el stock entra por recepciones o inventarios.
type CreateProductRequest struct {
	Ref           *string         `json:"ref" validate:"omitempty,max=100"`
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	CriticalLevel int             `json:"critical_level" validate:"min=0"`
}

// UpdateProductRequest entrada para actualizar un producto (sin Quantity).
type UpdateProductRequest struct {
	Ref           *string          `json:"ref"`
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Category      *string          `json:"category"`
	Price         *decimal.Decimal `json:"price"`
	CriticalLevel *int             `json:"critical_level"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID            int64           `json:"id"`
	Ref           *string         `json:"ref"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	CriticalLevel int             `json:"critical_level"`
	Critical      bool            `json:"critical"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// NewProductResponse mapea la entidad.
func NewProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Ref:           p.Ref,
		Name:          p.Name,
		Category:      p.Category,
		Quantity:      p.Quantity,
		Price:         p.Price,
		CriticalLevel: p.CriticalLevel,
		Critical:      p.IsCritical(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
