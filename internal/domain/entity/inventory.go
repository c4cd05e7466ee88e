package entity

import "time"

// Inventory es un conteo físico; cada línea compara lo contado con el stock teórico.
type Inventory struct {
	ID        int64
	Label     string
	CountedAt time.Time
	Notes     string
	CreatedBy int64
	CreatedAt time.Time
	Items     []InventoryItem
}

// InventoryItem línea de conteo. TheoreticalQty es la foto de Product.Quantity al contar.
type InventoryItem struct {
	ID             int64
	InventoryID    int64
	ProductID      int64
	ProductName    string
	TheoreticalQty int
	CountedQty     int
	Variance       int
}

// ComputeVariance devuelve contado − teórico.
func ComputeVariance(counted, theoretical int) int {
	return counted - theoretical
}
