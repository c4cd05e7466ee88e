package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, permissions, permissions_overridden, status,
	invitation_token, invited_at, created_at, updated_at`

func scanUser(row rowScanner) (*entity.User, error) {
	var u entity.User
	var perms []string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &perms, &u.PermissionsOverridden, &u.Status,
		&u.InvitationToken, &u.InvitedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Permissions = toCapabilities(perms)
	return &u, nil
}

func toCapabilities(in []string) []entity.Capability {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.Capability, len(in))
	for i, s := range in {
		out[i] = entity.Capability(s)
	}
	return out
}

func fromCapabilities(in []entity.Capability) []string {
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, permissions, permissions_overridden, status,
			invitation_token, invited_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		user.Name, user.Email, user.PasswordHash, string(user.Role), fromCapabilities(user.Permissions),
		user.PermissionsOverridden, user.Status, user.InvitationToken, user.InvitedAt, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

// GetByEmail obtiene un usuario por email (ya normalizado en minúsculas).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

// GetByInvitationToken obtiene el usuario invitado con ese token.
func (r *UserRepo) GetByInvitationToken(ctx context.Context, token string) (*entity.User, error) {
	return r.findOne(ctx, "invitation_token = $1", token)
}

func (r *UserRepo) findOne(ctx context.Context, cond string, arg any) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg))
	if err != nil {
		return nil, notFoundOr(err, "get user")
	}
	return u, nil
}

// Update actualiza un usuario existente.
func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET name = $2, email = $3, password_hash = $4, role = $5, permissions = $6,
			permissions_overridden = $7, status = $8, invitation_token = $9, updated_at = $10
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), fromCapabilities(user.Permissions),
		user.PermissionsOverridden, user.Status, user.InvitationToken, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return mustAffect(tag)
}

// List usuarios ordenados por email.
func (r *UserRepo) List(ctx context.Context, page repository.Page) ([]*entity.User, error) {
	page = page.Normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var list []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Delete elimina un usuario. Si tiene historial (movimientos, solicitudes) devuelve ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: el usuario tiene historial; desactívelo", domain.ErrConflict)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return mustAffect(tag)
}
