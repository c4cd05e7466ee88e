package repository

import (
	"context"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// VehicleRepository define el puerto de persistencia para la flota.
type VehicleRepository interface {
	Create(ctx context.Context, v *entity.Vehicle) error
	GetByID(ctx context.Context, id int64) (*entity.Vehicle, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.Vehicle, error)
	GetByPlate(ctx context.Context, plate string) (*entity.Vehicle, error)
	Update(ctx context.Context, v *entity.Vehicle) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, status string, page Page) ([]*entity.Vehicle, error)
	CountByStatus(ctx context.Context) (map[string]int, error)

	CreateAssignment(ctx context.Context, a *entity.VehicleAssignment) error
	GetActiveAssignment(ctx context.Context, vehicleID int64) (*entity.VehicleAssignment, error)
	CloseAssignment(ctx context.Context, assignmentID int64, at time.Time) error
	ListAssignments(ctx context.Context, vehicleID int64) ([]*entity.VehicleAssignment, error)

	CreateMaintenance(ctx context.Context, m *entity.Maintenance) error
	GetMaintenance(ctx context.Context, id int64) (*entity.Maintenance, error)
	ListMaintenance(ctx context.Context, vehicleID int64) ([]*entity.Maintenance, error)
	DeleteMaintenance(ctx context.Context, id int64) error
}
