package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

var _ repository.VehicleRepository = (*VehicleRepo)(nil)

// VehicleRepo flota, asignaciones y mantenimientos (usable con pool o tx).
type VehicleRepo struct {
	q Querier
}

// NewVehicleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVehicleRepository(q Querier) *VehicleRepo {
	return &VehicleRepo{q: q}
}

const vehicleColumns = `id, plate, brand, model, year, status, reformed_at, created_at, updated_at`

func scanVehicle(row rowScanner) (*entity.Vehicle, error) {
	var v entity.Vehicle
	err := row.Scan(&v.ID, &v.Plate, &v.Brand, &v.Model, &v.Year, &v.Status, &v.ReformedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create persiste un vehículo. Matrícula repetida (sin distinguir mayúsculas) devuelve ErrDuplicate.
func (r *VehicleRepo) Create(ctx context.Context, v *entity.Vehicle) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO vehicles (plate, brand, model, year, status, reformed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		v.Plate, v.Brand, v.Model, v.Year, v.Status, v.ReformedAt, v.CreatedAt, v.UpdatedAt,
	).Scan(&v.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert vehicle: %w", err)
	}
	return nil
}

// GetByID obtiene un vehículo.
func (r *VehicleRepo) GetByID(ctx context.Context, id int64) (*entity.Vehicle, error) {
	v, err := scanVehicle(r.q.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "get vehicle")
	}
	return v, nil
}

// GetForUpdate bloquea la fila del vehículo hasta el fin de la transacción.
func (r *VehicleRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Vehicle, error) {
	v, err := scanVehicle(r.q.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr(err, "lock vehicle")
	}
	return v, nil
}

// GetByPlate búsqueda por matrícula sin distinguir mayúsculas.
func (r *VehicleRepo) GetByPlate(ctx context.Context, plate string) (*entity.Vehicle, error) {
	v, err := scanVehicle(r.q.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE upper(plate) = upper($1)`, plate))
	if err != nil {
		return nil, notFoundOr(err, "get vehicle by plate")
	}
	return v, nil
}

// Update actualiza datos descriptivos y estado.
func (r *VehicleRepo) Update(ctx context.Context, v *entity.Vehicle) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE vehicles SET plate = $2, brand = $3, model = $4, year = $5, status = $6, reformed_at = $7, updated_at = $8
		WHERE id = $1`,
		v.ID, v.Plate, v.Brand, v.Model, v.Year, v.Status, v.ReformedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update vehicle: %w", err)
	}
	return mustAffect(tag)
}

// Delete elimina el vehículo; los mantenimientos caen en cascada.
func (r *VehicleRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: el vehículo tiene asignaciones", domain.ErrConflict)
		}
		return fmt.Errorf("delete vehicle: %w", err)
	}
	return mustAffect(tag)
}

// List vehículos por matrícula, opcionalmente filtrados por estado.
func (r *VehicleRepo) List(ctx context.Context, status string, page repository.Page) ([]*entity.Vehicle, error) {
	page = page.Normalize()
	var w where
	if status != "" {
		w.add("status = $%d", status)
	}
	rows, err := r.q.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles`+w.sql()+` ORDER BY plate`+w.page(page.Limit, page.Offset), w.args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()
	var list []*entity.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// CountByStatus número de vehículos por estado.
func (r *VehicleRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.q.Query(ctx, `SELECT status, count(*) FROM vehicles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count vehicles: %w", err)
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan vehicle count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CreateAssignment abre una asignación. El índice único parcial sobre (vehicle_id) WHERE unassigned_at IS NULL
// garantiza una sola activa: la violación se devuelve como ErrDuplicate.
func (r *VehicleRepo) CreateAssignment(ctx context.Context, a *entity.VehicleAssignment) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO vehicle_assignments (vehicle_id, assignee, assigned_at, notes, created_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.VehicleID, a.Assignee, a.AssignedAt, a.Notes, a.CreatedBy,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert vehicle assignment: %w", err)
	}
	return nil
}

const assignmentColumns = `id, vehicle_id, assignee, assigned_at, unassigned_at, notes, created_by`

func scanAssignment(row rowScanner) (*entity.VehicleAssignment, error) {
	var a entity.VehicleAssignment
	if err := row.Scan(&a.ID, &a.VehicleID, &a.Assignee, &a.AssignedAt, &a.UnassignedAt, &a.Notes, &a.CreatedBy); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActiveAssignment asignación vigente o ErrNotFound.
func (r *VehicleRepo) GetActiveAssignment(ctx context.Context, vehicleID int64) (*entity.VehicleAssignment, error) {
	a, err := scanAssignment(r.q.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM vehicle_assignments WHERE vehicle_id = $1 AND unassigned_at IS NULL`, vehicleID))
	if err != nil {
		return nil, notFoundOr(err, "get active assignment")
	}
	return a, nil
}

// CloseAssignment cierra una asignación activa; si ya estaba cerrada devuelve ErrInvalidState.
func (r *VehicleRepo) CloseAssignment(ctx context.Context, assignmentID int64, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE vehicle_assignments SET unassigned_at = $2 WHERE id = $1 AND unassigned_at IS NULL`, assignmentID, at)
	if err != nil {
		return fmt.Errorf("close assignment: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vehicle_assignments WHERE id = $1)`, assignmentID).Scan(&exists); err != nil {
		return fmt.Errorf("check assignment: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidState
}

// ListAssignments historial de asignaciones, más recientes primero.
func (r *VehicleRepo) ListAssignments(ctx context.Context, vehicleID int64) ([]*entity.VehicleAssignment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+assignmentColumns+` FROM vehicle_assignments WHERE vehicle_id = $1 ORDER BY id DESC`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	var list []*entity.VehicleAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

const maintenanceColumns = `id, vehicle_id, kind, description, cost, performed_at, next_due_at, created_by, created_at`

func scanMaintenance(row rowScanner) (*entity.Maintenance, error) {
	var m entity.Maintenance
	err := row.Scan(&m.ID, &m.VehicleID, &m.Kind, &m.Description, &m.Cost, &m.PerformedAt, &m.NextDueAt, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMaintenance registra un mantenimiento.
func (r *VehicleRepo) CreateMaintenance(ctx context.Context, m *entity.Maintenance) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO vehicle_maintenance (vehicle_id, kind, description, cost, performed_at, next_due_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		m.VehicleID, m.Kind, m.Description, m.Cost, m.PerformedAt, m.NextDueAt, m.CreatedBy, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert maintenance: %w", err)
	}
	return nil
}

// GetMaintenance obtiene un mantenimiento.
func (r *VehicleRepo) GetMaintenance(ctx context.Context, id int64) (*entity.Maintenance, error) {
	m, err := scanMaintenance(r.q.QueryRow(ctx, `SELECT `+maintenanceColumns+` FROM vehicle_maintenance WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "get maintenance")
	}
	return m, nil
}

// ListMaintenance mantenimientos de un vehículo, más recientes primero.
func (r *VehicleRepo) ListMaintenance(ctx context.Context, vehicleID int64) ([]*entity.Maintenance, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+maintenanceColumns+` FROM vehicle_maintenance WHERE vehicle_id = $1 ORDER BY performed_at DESC, id DESC`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list maintenance: %w", err)
	}
	defer rows.Close()
	var list []*entity.Maintenance
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// DeleteMaintenance elimina un mantenimiento.
func (r *VehicleRepo) DeleteMaintenance(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM vehicle_maintenance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete maintenance: %w", err)
	}
	return mustAffect(tag)
}
