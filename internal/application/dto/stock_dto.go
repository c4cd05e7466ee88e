package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// CreateReceiptRequest body de POST /api/receipts. Mismo formato que el payload "receipt"
// de una operación pendiente: ambos caminos producen los mismos efectos.
type CreateReceiptRequest = entity.ReceiptPayload

// CreateStockOutRequest body de POST /api/stockouts (mismo formato que el payload "stockout").
type CreateStockOutRequest = entity.StockOutPayload

// InventoryCountLine línea de conteo.
type InventoryCountLine struct {
	ProductID  int64 `json:"product_id"`
	CountedQty int   `json:"counted_qty"`
}

// CreateInventoryRequest body de POST /api/inventories.
type CreateInventoryRequest struct {
	Label     string               `json:"label"`
	CountedAt entity.Date          `json:"counted_at"`
	Notes     string               `json:"notes"`
	Items     []InventoryCountLine `json:"items"`
}

// ReceiptItemResponse línea de recepción.
type ReceiptItemResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// ReceiptResponse salida de una recepción.
type ReceiptResponse struct {
	ID            int64                 `json:"id"`
	Ref           *string               `json:"ref"`
	Supplier      string                `json:"supplier"`
	Agent         string                `json:"agent"`
	ReceivedAt    time.Time             `json:"received_at"`
	Status        string                `json:"status"`
	ApprovedBy    *int64                `json:"approved_by"`
	ApprovedAt    *time.Time            `json:"approved_at"`
	TotalQuantity int                   `json:"total_quantity"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	Items         []ReceiptItemResponse `json:"items,omitempty"`
}

// NewReceiptResponse mapea la entidad.
func NewReceiptResponse(r *entity.Receipt) ReceiptResponse {
	out := ReceiptResponse{
		ID:            r.ID,
		Ref:           r.Ref,
		Supplier:      r.Supplier,
		Agent:         r.Agent,
		ReceivedAt:    r.ReceivedAt,
		Status:        r.Status,
		ApprovedBy:    r.ApprovedBy,
		ApprovedAt:    r.ApprovedAt,
		TotalQuantity: r.TotalQuantity(),
		TotalAmount:   r.TotalAmount(),
	}
	for _, it := range r.Items {
		out.Items = append(out.Items, ReceiptItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}

// MovementResponse salida de un movimiento de stock.
type MovementResponse struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	Type         string    `json:"type"`
	Quantity     int       `json:"quantity"`
	MovementDate time.Time `json:"movement_date"`
	ExitType     string    `json:"exit_type,omitempty"`
	Destination  string    `json:"destination,omitempty"`
	Status       *string   `json:"status"`
	Reference    string    `json:"reference,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedBy    int64     `json:"created_by"`
}

// NewMovementResponse mapea la entidad.
func NewMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:           m.ID,
		ProductID:    m.ProductID,
		Type:         m.Type,
		Quantity:     m.Quantity,
		MovementDate: m.MovementDate,
		ExitType:     m.ExitType,
		Destination:  m.Destination,
		Status:       m.Status,
		Reference:    m.Reference,
		Notes:        m.Notes,
		CreatedBy:    m.CreatedBy,
	}
}

// InventoryItemResponse línea de inventario.
type InventoryItemResponse struct {
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name,omitempty"`
	TheoreticalQty int    `json:"theoretical_qty"`
	CountedQty     int    `json:"counted_qty"`
	Variance       int    `json:"variance"`
}

// InventoryResponse salida de un inventario.
type InventoryResponse struct {
	ID        int64                   `json:"id"`
	Label     string                  `json:"label"`
	CountedAt time.Time               `json:"counted_at"`
	Notes     string                  `json:"notes,omitempty"`
	CreatedBy int64                   `json:"created_by"`
	Items     []InventoryItemResponse `json:"items,omitempty"`
}

// NewInventoryResponse mapea la entidad.
func NewInventoryResponse(inv *entity.Inventory) InventoryResponse {
	out := InventoryResponse{
		ID:        inv.ID,
		Label:     inv.Label,
		CountedAt: inv.CountedAt,
		Notes:     inv.Notes,
		CreatedBy: inv.CreatedBy,
	}
	for _, it := range inv.Items {
		out.Items = append(out.Items, InventoryItemResponse{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			TheoreticalQty: it.TheoreticalQty,
			CountedQty:     it.CountedQty,
			Variance:       it.Variance,
		})
	}
	return out
}
