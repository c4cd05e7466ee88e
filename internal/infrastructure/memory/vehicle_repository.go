package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// VehicleRepository implementa repository.VehicleRepository.
type VehicleRepository struct {
	h handle
}

var _ repository.VehicleRepository = (*VehicleRepository)(nil)

func plateTaken(t *tables, plate string, exceptID int64) bool {
	for id, v := range t.vehicles {
		if id != exceptID && strings.EqualFold(v.Plate, plate) {
			return true
		}
	}
	return false
}

func (r *VehicleRepository) Create(ctx context.Context, v *entity.Vehicle) error {
	return r.h.read(func(t *tables) error {
		if plateTaken(t, v.Plate, 0) {
			return domain.ErrDuplicate
		}
		v.ID = t.nextID()
		if v.CreatedAt.IsZero() {
			v.CreatedAt = time.Now().UTC()
		}
		if v.UpdatedAt.IsZero() {
			v.UpdatedAt = v.CreatedAt
		}
		t.vehicles[v.ID] = *v
		return nil
	})
}

func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*entity.Vehicle, error) {
	var out *entity.Vehicle
	err := r.h.read(func(t *tables) error {
		v, ok := t.vehicles[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *VehicleRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Vehicle, error) {
	return r.GetByID(ctx, id)
}

func (r *VehicleRepository) GetByPlate(ctx context.Context, plate string) (*entity.Vehicle, error) {
	var out *entity.Vehicle
	err := r.h.read(func(t *tables) error {
		for _, v := range t.vehicles {
			if strings.EqualFold(v.Plate, plate) {
				out = &v
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *VehicleRepository) Update(ctx context.Context, v *entity.Vehicle) error {
	return r.h.read(func(t *tables) error {
		cur, ok := t.vehicles[v.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if plateTaken(t, v.Plate, v.ID) {
			return domain.ErrDuplicate
		}
		next := *v
		next.CreatedAt = cur.CreatedAt
		t.vehicles[v.ID] = next
		return nil
	})
}

func (r *VehicleRepository) Delete(ctx context.Context, id int64) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.vehicles[id]; !ok {
			return domain.ErrNotFound
		}
		for mid, m := range t.maintenance {
			if m.VehicleID == id {
				delete(t.maintenance, mid)
			}
		}
		delete(t.vehicles, id)
		return nil
	})
}

func (r *VehicleRepository) List(ctx context.Context, status string, page repository.Page) ([]*entity.Vehicle, error) {
	var out []*entity.Vehicle
	err := r.h.read(func(t *tables) error {
		for _, v := range t.vehicles {
			if status == "" || v.Status == status {
				out = append(out, &v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Plate < out[j].Plate })
	return paginate(out, page), err
}

func (r *VehicleRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	err := r.h.read(func(t *tables) error {
		for _, v := range t.vehicles {
			counts[v.Status]++
		}
		return nil
	})
	return counts, err
}

// CreateAssignment falla con ErrDuplicate si el vehículo ya tiene una asignación activa
// (índice único parcial en Postgres).
func (r *VehicleRepository) CreateAssignment(ctx context.Context, a *entity.VehicleAssignment) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.vehicles[a.VehicleID]; !ok {
			return domain.ErrNotFound
		}
		for _, other := range t.assignments {
			if other.VehicleID == a.VehicleID && other.Active() {
				return domain.ErrDuplicate
			}
		}
		a.ID = t.nextID()
		t.assignments[a.ID] = *a
		return nil
	})
}

func (r *VehicleRepository) GetActiveAssignment(ctx context.Context, vehicleID int64) (*entity.VehicleAssignment, error) {
	var out *entity.VehicleAssignment
	err := r.h.read(func(t *tables) error {
		for _, a := range t.assignments {
			if a.VehicleID == vehicleID && a.Active() {
				out = &a
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *VehicleRepository) CloseAssignment(ctx context.Context, assignmentID int64, at time.Time) error {
	return r.h.read(func(t *tables) error {
		a, ok := t.assignments[assignmentID]
		if !ok {
			return domain.ErrNotFound
		}
		if !a.Active() {
			return domain.ErrInvalidState
		}
		a.UnassignedAt = &at
		t.assignments[assignmentID] = a
		return nil
	})
}

func (r *VehicleRepository) ListAssignments(ctx context.Context, vehicleID int64) ([]*entity.VehicleAssignment, error) {
	var out []*entity.VehicleAssignment
	err := r.h.read(func(t *tables) error {
		for _, a := range t.assignments {
			if a.VehicleID == vehicleID {
				out = append(out, &a)
			}
		}
		return nil
	})
	newestFirst(out, func(a *entity.VehicleAssignment) int64 { return a.ID })
	return out, err
}

func (r *VehicleRepository) CreateMaintenance(ctx context.Context, m *entity.Maintenance) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.vehicles[m.VehicleID]; !ok {
			return domain.ErrNotFound
		}
		m.ID = t.nextID()
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		t.maintenance[m.ID] = *m
		return nil
	})
}

func (r *VehicleRepository) GetMaintenance(ctx context.Context, id int64) (*entity.Maintenance, error) {
	var out *entity.Maintenance
	err := r.h.read(func(t *tables) error {
		m, ok := t.maintenance[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *VehicleRepository) ListMaintenance(ctx context.Context, vehicleID int64) ([]*entity.Maintenance, error) {
	var out []*entity.Maintenance
	err := r.h.read(func(t *tables) error {
		for _, m := range t.maintenance {
			if m.VehicleID == vehicleID {
				out = append(out, &m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PerformedAt.Equal(out[j].PerformedAt) {
			return out[i].PerformedAt.After(out[j].PerformedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r *VehicleRepository) DeleteMaintenance(ctx context.Context, id int64) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.maintenance[id]; !ok {
			return domain.ErrNotFound
		}
		delete(t.maintenance, id)
		return nil
	})
}
