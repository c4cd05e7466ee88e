package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un vehículo: pending → assigned → (pending) → reformed.
const (
	VehicleStatusPending  = "pending"
	VehicleStatusAssigned = "assigned"
	VehicleStatusReformed = "reformed"
)

// Vehicle vehículo de la flota.
type Vehicle struct {
	ID         int64
	Plate      string
	Brand      string
	Model      string
	Year       int
	Status     string
	ReformedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// VehicleAssignment asignación de un vehículo. Activa mientras UnassignedAt sea nil.
type VehicleAssignment struct {
	ID           int64
	VehicleID    int64
	Assignee     string
	AssignedAt   time.Time
	UnassignedAt *time.Time
	Notes        string
	CreatedBy    int64
}

// Active indica si la asignación sigue vigente.
func (a *VehicleAssignment) Active() bool {
	return a.UnassignedAt == nil
}

// Maintenance intervención de mantenimiento sobre un vehículo.
type Maintenance struct {
	ID          int64
	VehicleID   int64
	Kind        string
	Description string
	Cost        decimal.Decimal
	PerformedAt time.Time
	NextDueAt   *time.Time
	CreatedBy   int64
	CreatedAt   time.Time
}
