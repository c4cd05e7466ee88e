package entity

import "time"

// Tipos de movimiento de stock. La dirección la da el tipo; Quantity es siempre positiva.
const (
	MovementTypeStockOut   = "stockout"
	MovementTypeAdjustment = "adjustment"
)

// Tipos de salida y estados.
const (
	ExitTypeProvisional     = "Provisoire"
	ExitTypeDefinitive      = "Définitive"
	MovementStatusCompleted = "Complétée"
)

// StockMovement registra una salida o un ajuste de inventario sobre un producto.
type StockMovement struct {
	ID           int64
	ProductID    int64
	Type         string
	Quantity     int
	MovementDate time.Time
	ExitType     string
	Destination  string
	Status       *string // nil para salidas provisionales
	Reference    string  // p.ej. "INV-12" para ajustes
	Notes        string
	CreatedBy    int64
	CreatedAt    time.Time
}
