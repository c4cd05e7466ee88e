package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// CreateVehicleRequest body de POST /api/vehicles (mismo formato que el payload "vehicle").
type CreateVehicleRequest = entity.VehiclePayload

// UpdateVehicleRequest campos descriptivos editables.
type UpdateVehicleRequest struct {
	Plate *string `json:"plate"`
	Brand *string `json:"brand"`
	Model *string `json:"model"`
	Year  *int    `json:"year"`
}

// AssignVehicleRequest body de POST /api/vehicles/:id/assign.
type AssignVehicleRequest struct {
	Assignee   string      `json:"assignee"`
	AssignedAt entity.Date `json:"assigned_at"`
	Notes      string      `json:"notes"`
}

// VehicleResponse salida de un vehículo.
type VehicleResponse struct {
	ID         int64               `json:"id"`
	Plate      string              `json:"plate"`
	Brand      string              `json:"brand"`
	Model      string              `json:"model"`
	Year       int                 `json:"year"`
	Status     string              `json:"status"`
	ReformedAt *time.Time          `json:"reformed_at"`
	Assignment *AssignmentResponse `json:"current_assignment,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// AssignmentResponse salida de una asignación.
type AssignmentResponse struct {
	ID           int64      `json:"id"`
	VehicleID    int64      `json:"vehicle_id"`
	Assignee     string     `json:"assignee"`
	AssignedAt   time.Time  `json:"assigned_at"`
	UnassignedAt *time.Time `json:"unassigned_at"`
	Notes        string     `json:"notes,omitempty"`
}

// CreateMaintenanceRequest body de POST /api/vehicles/:id/maintenances.
type CreateMaintenanceRequest struct {
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	PerformedAt entity.Date     `json:"performed_at"`
	NextDueAt   entity.Date     `json:"next_due_at"`
}

// MaintenanceResponse salida de un mantenimiento.
type MaintenanceResponse struct {
	ID          int64           `json:"id"`
	VehicleID   int64           `json:"vehicle_id"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	PerformedAt time.Time       `json:"performed_at"`
	NextDueAt   *time.Time      `json:"next_due_at"`
	Overdue     bool            `json:"overdue"`
}

// NewVehicleResponse mapea el vehículo y, si existe, su asignación activa.
func NewVehicleResponse(v *entity.Vehicle, active *entity.VehicleAssignment) VehicleResponse {
	out := VehicleResponse{
		ID:         v.ID,
		Plate:      v.Plate,
		Brand:      v.Brand,
		Model:      v.Model,
		Year:       v.Year,
		Status:     v.Status,
		ReformedAt: v.ReformedAt,
		CreatedAt:  v.CreatedAt,
	}
	if active != nil {
		a := NewAssignmentResponse(active)
		out.Assignment = &a
	}
	return out
}

// NewAssignmentResponse mapea la entidad.
func NewAssignmentResponse(a *entity.VehicleAssignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           a.ID,
		VehicleID:    a.VehicleID,
		Assignee:     a.Assignee,
		AssignedAt:   a.AssignedAt,
		UnassignedAt: a.UnassignedAt,
		Notes:        a.Notes,
	}
}

// NewMaintenanceResponse mapea la entidad; overdue lo calcula quien llama.
func NewMaintenanceResponse(m *entity.Maintenance, overdue bool) MaintenanceResponse {
	return MaintenanceResponse{
		ID:          m.ID,
		VehicleID:   m.VehicleID,
		Kind:        m.Kind,
		Description: m.Description,
		Cost:        m.Cost,
		PerformedAt: m.PerformedAt,
		NextDueAt:   m.NextDueAt,
		Overdue:     overdue,
	}
}
