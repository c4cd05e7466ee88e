package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// UserRepository implementa repository.UserRepository.
type UserRepository struct {
	h handle
}

var _ repository.UserRepository = (*UserRepository)(nil)

func emailTaken(t *tables, email string, exceptID int64) bool {
	for id, u := range t.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	return r.h.read(func(t *tables) error {
		if emailTaken(t, u.Email, 0) {
			return domain.ErrEmailAlreadyExists
		}
		u.ID = t.nextID()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now().UTC()
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = u.CreatedAt
		}
		stored := *u
		stored.Permissions = slices.Clone(u.Permissions)
		t.users[u.ID] = stored
		return nil
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) GetByInvitationToken(ctx context.Context, token string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.InvitationToken != nil && *u.InvitationToken == token })
}

func (r *UserRepository) find(match func(entity.User) bool) (*entity.User, error) {
	var out *entity.User
	err := r.h.read(func(t *tables) error {
		for _, u := range t.users {
			if match(u) {
				u.Permissions = slices.Clone(u.Permissions)
				out = &u
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	return r.h.read(func(t *tables) error {
		cur, ok := t.users[u.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if emailTaken(t, u.Email, u.ID) {
			return domain.ErrEmailAlreadyExists
		}
		next := *u
		next.Permissions = slices.Clone(u.Permissions)
		next.CreatedAt = cur.CreatedAt
		t.users[u.ID] = next
		return nil
	})
}

func (r *UserRepository) List(ctx context.Context, page repository.Page) ([]*entity.User, error) {
	var out []*entity.User
	err := r.h.read(func(t *tables) error {
		for _, u := range t.users {
			u.Permissions = slices.Clone(u.Permissions)
			out = append(out, &u)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *entity.User) int { return strings.Compare(a.Email, b.Email) })
	return paginate(out, page), err
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.h.read(func(t *tables) error {
		if _, ok := t.users[id]; !ok {
			return domain.ErrNotFound
		}
		delete(t.users, id)
		return nil
	})
}
