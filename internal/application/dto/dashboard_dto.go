package dto

import "time"

// DashboardSummary respuesta de GET /api/dashboard/summary.
type DashboardSummary struct {
	TotalProducts     int            `json:"total_products"`
	CriticalProducts  int            `json:"critical_products"`
	PendingOperations int            `json:"pending_operations"`
	PendingNeeds      int            `json:"pending_needs"`
	VehiclesByStatus  map[string]int `json:"vehicles_by_status"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
