package usecase

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/pkg/logger"
)

// UserUseCase gestión de usuarios por parte del administrador: invitaciones, rol y permisos.
type UserUseCase struct {
	repo          repository.UserRepository
	mailer        ports.Mailer
	invitationURL string
	log           *logger.Logger
	now           func() time.Time
}

// NewUserUseCase construye el caso de uso. mailer puede ser nil (sin correo).
func NewUserUseCase(repo repository.UserRepository, mailer ports.Mailer, invitationURL string, log *logger.Logger) *UserUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UserUseCase{
		repo:          repo,
		mailer:        mailer,
		invitationURL: invitationURL,
		log:           log.Component("users"),
		now:           time.Now,
	}
}

// Invite crea un usuario en estado invited con un token de aceptación y envía el correo.
// Un fallo de correo no revierte la invitación: el token sigue siendo válido.
func (uc *UserUseCase) Invite(ctx context.Context, actor entity.Actor, in dto.InviteUserRequest) (*entity.User, error) {
	if !actor.CanManageUsers() {
		return nil, domain.ErrForbidden
	}
	v := domain.NewValidationError()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		v.Add("email", "email inválido")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		v.Add("name", "requerido")
	}
	role, ok := entity.ParseRole(in.Role)
	if !ok {
		v.Add("role", "rol desconocido")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if _, err := uc.repo.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := uc.now().UTC()
	token := uuid.NewString()
	user := &entity.User{
		Name:            name,
		Email:           email,
		Role:            role,
		Status:          entity.UserStatusInvited,
		InvitationToken: &token,
		InvitedAt:       &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if uc.mailer != nil {
		inv := ports.Invitation{To: email, Name: name, Role: string(role), AcceptURL: uc.acceptURL(token)}
		if err := uc.mailer.SendInvitation(ctx, inv); err != nil {
			uc.log.Warn().Err(err).Int64("user_id", user.ID).Str("email", email).Msg("no se pudo enviar la invitación")
		}
	}
	uc.log.Info().Int64("user_id", user.ID).Str("role", string(role)).Int64("invited_by", actor.UserID).Msg("usuario invitado")
	return user, nil
}

func (uc *UserUseCase) acceptURL(token string) string {
	u, err := url.Parse(uc.invitationURL)
	if err != nil || uc.invitationURL == "" {
		return "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// GetByID obtiene un usuario por ID.
func (uc *UserUseCase) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return uc.repo.GetByID(ctx, id)
}

// List lista usuarios (solo administración).
func (uc *UserUseCase) List(ctx context.Context, actor entity.Actor, page repository.Page) ([]*entity.User, error) {
	if !actor.CanManageUsers() {
		return nil, domain.ErrForbidden
	}
	return uc.repo.List(ctx, page.Normalize())
}

// Update cambia nombre, rol, permisos explícitos o estado.
// Un administrador no puede quitarse a sí mismo el rol ni desactivarse.
func (uc *UserUseCase) Update(ctx context.Context, actor entity.Actor, id int64, in dto.UpdateUserRequest) (*entity.User, error) {
	if !actor.CanManageUsers() {
		return nil, domain.ErrForbidden
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := domain.NewValidationError()
	self := user.ID == actor.UserID
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
		if user.Name == "" {
			v.Add("name", "requerido")
		}
	}
	if in.Role != nil {
		role, ok := entity.ParseRole(*in.Role)
		switch {
		case !ok:
			v.Add("role", "rol desconocido")
		case self && role != user.Role:
			v.Add("role", "no puede cambiar su propio rol")
		default:
			user.Role = role
			if in.Permissions == nil && user.PermissionsOverridden {
				user.Permissions = slices.DeleteFunc(user.Permissions, func(c entity.Capability) bool {
					return role != entity.RoleAdmin && entity.AdminOnly(c)
				})
			}
		}
	}
	switch {
	case in.ResetPermissions:
		user.Permissions = nil
		user.PermissionsOverridden = false
	case in.Permissions != nil:
		caps, unknown := entity.ParseCapabilities(*in.Permissions)
		if len(unknown) > 0 {
			v.Add("permissions", "permisos desconocidos: "+strings.Join(unknown, ", "))
		} else if self && !slices.Contains(caps, entity.CapUsersManage) {
			v.Add("permissions", "no puede quitarse users.manage")
		}
		user.Permissions = caps
		user.PermissionsOverridden = true
	}
	if user.PermissionsOverridden {
		if denied := entity.ForbiddenFor(user.Role, user.Permissions); len(denied) > 0 {
			names := make([]string, len(denied))
			for i, c := range denied {
				names[i] = string(c)
			}
			v.Add("permissions", "reservados al administrador: "+strings.Join(names, ", "))
		}
	}
	if in.Status != nil {
		switch *in.Status {
		case entity.UserStatusActive, entity.UserStatusDisabled:
			if self && *in.Status == entity.UserStatusDisabled {
				v.Add("status", "no puede desactivarse a sí mismo")
			} else if user.Status == entity.UserStatusInvited && *in.Status == entity.UserStatusActive {
				v.Add("status", "la invitación aún no fue aceptada")
			} else {
				user.Status = *in.Status
			}
		default:
			v.Add("status", "valor no soportado")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	user.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete elimina un usuario. No se permite borrarse a sí mismo.
func (uc *UserUseCase) Delete(ctx context.Context, actor entity.Actor, id int64) error {
	if !actor.CanManageUsers() {
		return domain.ErrForbidden
	}
	if id == actor.UserID {
		return domain.FieldError("id", "no puede eliminarse a sí mismo")
	}
	return uc.repo.Delete(ctx, id)
}

// ToUserResponse mapea la entidad sin datos sensibles.
func ToUserResponse(u *entity.User) dto.UserResponse {
	perms := u.EffectivePermissions()
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, string(p))
	}
	return dto.UserResponse{
		ID:                    u.ID,
		Name:                  u.Name,
		Email:                 u.Email,
		Role:                  string(u.Role),
		Permissions:           names,
		PermissionsOverridden: u.PermissionsOverridden,
		Status:                u.Status,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}
