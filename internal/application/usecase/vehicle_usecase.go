package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// VehicleUseCase flota: alta, ciclo de vida (asignar, liberar, reformar) y mantenimientos.
type VehicleUseCase struct {
	tx   repository.TxRunner
	repo repository.VehicleRepository
	now  func() time.Time
}

// NewVehicleUseCase construye el caso de uso.
func NewVehicleUseCase(tx repository.TxRunner, repo repository.VehicleRepository) *VehicleUseCase {
	return &VehicleUseCase{tx: tx, repo: repo, now: time.Now}
}

// NormalizePlate matrícula en mayúsculas y sin espacios sobrantes.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), " "))
}

// Create alta directa de un vehículo.
func (uc *VehicleUseCase) Create(ctx context.Context, actor entity.Actor, in entity.VehiclePayload) (*entity.Vehicle, error) {
	if !actor.Can(entity.CapVehiclesManage) {
		return nil, domain.ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	origin := entity.Origin{RequestedBy: actor.UserID, ApprovedBy: actor.UserID, At: uc.now().UTC()}
	var v *entity.Vehicle
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		created, err := uc.CreateInTx(ctx, repos, in, origin)
		v = created
		return err
	})
	return v, err
}

// CreateInTx crea el vehículo siempre en estado pending, sin importar el status del payload.
func (uc *VehicleUseCase) CreateInTx(ctx context.Context, repos repository.TxRepos, in entity.VehiclePayload, origin entity.Origin) (*entity.Vehicle, error) {
	plate := NormalizePlate(in.Plate)
	if _, err := repos.Vehicles.GetByPlate(ctx, plate); err == nil {
		return nil, fmt.Errorf("%w: ya existe un vehículo con matrícula %q", domain.ErrConflict, plate)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	v := &entity.Vehicle{
		Plate:     plate,
		Brand:     strings.TrimSpace(in.Brand),
		Model:     strings.TrimSpace(in.Model),
		Year:      in.Year,
		Status:    entity.VehicleStatusPending,
		CreatedAt: origin.At,
		UpdatedAt: origin.At,
	}
	if err := repos.Vehicles.Create(ctx, v); err != nil {
		return nil, conflictOnDuplicate(err, "matrícula duplicada")
	}
	return v, nil
}

// Get obtiene un vehículo con su asignación activa (nil si no tiene).
func (uc *VehicleUseCase) Get(ctx context.Context, id int64) (*entity.Vehicle, *entity.VehicleAssignment, error) {
	v, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	a, err := uc.repo.GetActiveAssignment(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return v, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return v, a, nil
}

// List lista vehículos, opcionalmente por estado.
func (uc *VehicleUseCase) List(ctx context.Context, status string, page repository.Page) ([]*entity.Vehicle, error) {
	switch status {
	case "", entity.VehicleStatusPending, entity.VehicleStatusAssigned, entity.VehicleStatusReformed:
	default:
		return nil, domain.FieldError("status", "valor no soportado")
	}
	return uc.repo.List(ctx, status, page.Normalize())
}

// Update cambia los datos descriptivos. Un vehículo reformado ya no se edita.
func (uc *VehicleUseCase) Update(ctx context.Context, actor entity.Actor, id int64, in dto.UpdateVehicleRequest) (*entity.Vehicle, error) {
	if !actor.Can(entity.CapVehiclesManage) {
		return nil, domain.ErrForbidden
	}
	var v *entity.Vehicle
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		cur, err := repos.Vehicles.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == entity.VehicleStatusReformed {
			return domain.ErrInvalidState
		}
		if in.Plate != nil {
			cur.Plate = NormalizePlate(*in.Plate)
			if cur.Plate == "" {
				return domain.FieldError("plate", "requerido")
			}
		}
		if in.Brand != nil {
			cur.Brand = strings.TrimSpace(*in.Brand)
		}
		if in.Model != nil {
			cur.Model = strings.TrimSpace(*in.Model)
		}
		if in.Year != nil {
			if *in.Year < 0 {
				return domain.FieldError("year", "inválido")
			}
			cur.Year = *in.Year
		}
		cur.UpdatedAt = uc.now().UTC()
		if err := repos.Vehicles.Update(ctx, cur); err != nil {
			return conflictOnDuplicate(err, "matrícula duplicada")
		}
		v = cur
		return nil
	})
	return v, err
}

// Assign asigna un vehículo pendiente. Solo desde pending.
func (uc *VehicleUseCase) Assign(ctx context.Context, actor entity.Actor, id int64, in dto.AssignVehicleRequest) (*entity.VehicleAssignment, error) {
	if !actor.Can(entity.CapVehiclesManage) {
		return nil, domain.ErrForbidden
	}
	assignee := strings.TrimSpace(in.Assignee)
	if assignee == "" {
		return nil, domain.FieldError("assignee", "requerido")
	}
	now := uc.now().UTC()
	var a *entity.VehicleAssignment
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		v, err := repos.Vehicles.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != entity.VehicleStatusPending {
			return domain.ErrInvalidState
		}
		a = &entity.VehicleAssignment{
			VehicleID:  v.ID,
			Assignee:   assignee,
			AssignedAt: in.AssignedAt.OrNow(now),
			Notes:      in.Notes,
			CreatedBy:  actor.UserID,
		}
		if err := repos.Vehicles.CreateAssignment(ctx, a); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.ErrInvalidState
			}
			return err
		}
		v.Status = entity.VehicleStatusAssigned
		v.UpdatedAt = now
		return repos.Vehicles.Update(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Unassign cierra la asignación activa y devuelve el vehículo a pending.
func (uc *VehicleUseCase) Unassign(ctx context.Context, actor entity.Actor, id int64) (*entity.Vehicle, error) {
	if !actor.Can(entity.CapVehiclesManage) {
		return nil, domain.ErrForbidden
	}
	now := uc.now().UTC()
	var v *entity.Vehicle
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		cur, err := repos.Vehicles.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status != entity.VehicleStatusAssigned {
			return domain.ErrInvalidState
		}
		if err := closeActiveAssignment(ctx, repos, id, now); err != nil {
			return err
		}
		cur.Status = entity.VehicleStatusPending
		cur.UpdatedAt = now
		v = cur
		return repos.Vehicles.Update(ctx, cur)
	})
	return v, err
}

// Reform da de baja el vehículo (estado terminal). Cierra la asignación activa si la hay.
func (uc *VehicleUseCase) Reform(ctx context.Context, actor entity.Actor, id int64) (*entity.Vehicle, error) {
	if !actor.Can(entity.CapVehiclesManage) {
		return nil, domain.ErrForbidden
	}
	now := uc.now().UTC()
	var v *entity.Vehicle
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		cur, err := repos.Vehicles.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == entity.VehicleStatusReformed {
			return domain.ErrInvalidState
		}
		if cur.Status == entity.VehicleStatusAssigned {
			if err := closeActiveAssignment(ctx, repos, id, now); err != nil {
				return err
			}
		}
		cur.Status = entity.VehicleStatusReformed
		cur.ReformedAt = &now
		cur.UpdatedAt = now
		v = cur
		return repos.Vehicles.Update(ctx, cur)
	})
	return v, err
}

func closeActiveAssignment(ctx context.Context, repos repository.TxRepos, vehicleID int64, at time.Time) error {
	a, err := repos.Vehicles.GetActiveAssignment(ctx, vehicleID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return repos.Vehicles.CloseAssignment(ctx, a.ID, at)
}

// Delete elimina un vehículo que nunca fue asignado.
func (uc *VehicleUseCase) Delete(ctx context.Context, actor entity.Actor, id int64) error {
	if !actor.Can(entity.CapVehiclesManage) {
		return domain.ErrForbidden
	}
	return uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		if _, err := repos.Vehicles.GetForUpdate(ctx, id); err != nil {
			return err
		}
		history, err := repos.Vehicles.ListAssignments(ctx, id)
		if err != nil {
			return err
		}
		if len(history) > 0 {
			return fmt.Errorf("%w: el vehículo tiene historial de asignaciones", domain.ErrConflict)
		}
		return repos.Vehicles.Delete(ctx, id)
	})
}

// Assignments historial de asignaciones.
func (uc *VehicleUseCase) Assignments(ctx context.Context, id int64) ([]*entity.VehicleAssignment, error) {
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return uc.repo.ListAssignments(ctx, id)
}

// AddMaintenance registra un mantenimiento. No se admite sobre vehículos reformados.
func (uc *VehicleUseCase) AddMaintenance(ctx context.Context, actor entity.Actor, vehicleID int64, in dto.CreateMaintenanceRequest) (*entity.Maintenance, error) {
	if !actor.Can(entity.CapVehiclesManage) {
		return nil, domain.ErrForbidden
	}
	now := uc.now().UTC()
	performedAt := in.PerformedAt.OrNow(now)
	v := domain.NewValidationError()
	if strings.TrimSpace(in.Kind) == "" {
		v.Add("kind", "requerido")
	}
	if in.Cost.IsNegative() {
		v.Add("cost", "no puede ser negativo")
	}
	if !in.NextDueAt.IsZero() && in.NextDueAt.Before(performedAt) {
		v.Add("next_due_at", "debe ser posterior a performed_at")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	vehicle, err := uc.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.Status == entity.VehicleStatusReformed {
		return nil, domain.ErrInvalidState
	}
	m := &entity.Maintenance{
		VehicleID:   vehicleID,
		Kind:        strings.TrimSpace(in.Kind),
		Description: strings.TrimSpace(in.Description),
		Cost:        in.Cost,
		PerformedAt: performedAt,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
	}
	if !in.NextDueAt.IsZero() {
		due := in.NextDueAt.Time
		m.NextDueAt = &due
	}
	if err := uc.repo.CreateMaintenance(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Maintenances mantenimientos de un vehículo (más recientes primero).
func (uc *VehicleUseCase) Maintenances(ctx context.Context, vehicleID int64) ([]*entity.Maintenance, error) {
	if _, err := uc.repo.GetByID(ctx, vehicleID); err != nil {
		return nil, err
	}
	return uc.repo.ListMaintenance(ctx, vehicleID)
}

// DeleteMaintenance elimina un mantenimiento del vehículo indicado.
func (uc *VehicleUseCase) DeleteMaintenance(ctx context.Context, actor entity.Actor, vehicleID, id int64) error {
	if !actor.Can(entity.CapVehiclesManage) {
		return domain.ErrForbidden
	}
	m, err := uc.repo.GetMaintenance(ctx, id)
	if err != nil {
		return err
	}
	if m.VehicleID != vehicleID {
		return domain.ErrNotFound
	}
	return uc.repo.DeleteMaintenance(ctx, id)
}

// IsOverdue indica si el próximo mantenimiento ya venció.
func IsOverdue(m *entity.Maintenance, now time.Time) bool {
	return m.NextDueAt != nil && m.NextDueAt.Before(now)
}
