package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una recepción.
const (
	ReceiptStatusPending  = "pending"
	ReceiptStatusApproved = "approved"
	ReceiptStatusRejected = "rejected"
)

// Receipt representa una recepción de mercancía (bon de réception).
type Receipt struct {
	ID         int64
	Ref        *string
	Supplier   string
	Agent      string
	ReceivedAt time.Time
	Status     string
	ApprovedBy *int64
	ApprovedAt *time.Time
	CreatedBy  int64
	CreatedAt  time.Time
	Items      []ReceiptItem
}

// ReceiptItem línea de una recepción.
type ReceiptItem struct {
	ID          int64
	ReceiptID   int64
	ProductID   int64
	ProductName string // solo lectura (join)
	Quantity    int
	UnitPrice   decimal.Decimal
}

// TotalQuantity suma las cantidades de las líneas.
func (r *Receipt) TotalQuantity() int {
	total := 0
	for _, it := range r.Items {
		total += it.Quantity
	}
	return total
}

// TotalAmount suma cantidad × precio unitario de las líneas.
func (r *Receipt) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range r.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
