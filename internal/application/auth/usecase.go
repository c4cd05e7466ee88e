package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/usecase"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/pkg/jwt"
)

// MinPasswordLength longitud mínima de contraseña al aceptar una invitación.
const MinPasswordLength = 8

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: login, aceptación de invitación y resolución del actor.
type AuthUseCase struct {
	userRepo repository.UserRepository
	jwtCfg   JWTConfig
	now      func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, jwtCfg: jwtCfg, now: time.Now}
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Email desconocido y password incorrecta devuelven el mismo error.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != entity.UserStatusActive {
		return nil, domain.ErrForbidden
	}
	return uc.issue(user)
}

// AcceptInvitation fija la contraseña de un usuario invitado, lo activa y devuelve un token.
func (uc *AuthUseCase) AcceptInvitation(ctx context.Context, in dto.AcceptInvitationRequest) (*dto.LoginResponse, error) {
	v := domain.NewValidationError()
	if strings.TrimSpace(in.Token) == "" {
		v.Add("token", "requerido")
	}
	if len(in.Password) < MinPasswordLength {
		v.Add("password", "mínimo 8 caracteres")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	user, err := uc.userRepo.GetByInvitationToken(ctx, strings.TrimSpace(in.Token))
	if err != nil {
		return nil, err
	}
	if user.Status != entity.UserStatusInvited {
		return nil, domain.ErrInvalidState
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = string(hash)
	user.Status = entity.UserStatusActive
	user.InvitationToken = nil
	user.UpdatedAt = uc.now().UTC()
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return uc.issue(user)
}

// ResolveActor carga el usuario del token y calcula sus permisos efectivos.
// Un usuario borrado o desactivado deja de estar autenticado aunque su token siga vigente.
func (uc *AuthUseCase) ResolveActor(ctx context.Context, userID int64) (entity.Actor, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return entity.Actor{}, domain.ErrUnauthorized
	}
	if err != nil {
		return entity.Actor{}, err
	}
	if user.Status != entity.UserStatusActive {
		return entity.Actor{}, domain.ErrUnauthorized
	}
	return user.Actor(), nil
}

// EnsureAdmin crea el administrador inicial si el email no existe. Devuelve true si lo creó.
func (uc *AuthUseCase) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := uc.userRepo.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	now := uc.now().UTC()
	admin := &entity.User{
		Name:         "Administrateur",
		Email:        email,
		PasswordHash: string(hash),
		Role:         entity.RoleAdmin,
		Status:       entity.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}

func (uc *AuthUseCase) issue(user *entity.User) (*dto.LoginResponse, error) {
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, string(user.Role), uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  usecase.ToUserResponse(user),
	}, nil
}
