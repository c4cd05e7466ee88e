package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock-api/internal/application/auth"
	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/usecase"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/internal/infrastructure/memory"
	"github.com/jhoicas/medstock-api/pkg/jwt"
)

const secret = "secreto-de-pruebas"

func newAuth(t *testing.T) (*auth.AuthUseCase, repository.UserRepository) {
	t.Helper()
	users := memory.NewStore().Users()
	return auth.NewAuthUseCase(users, auth.JWTConfig{Secret: secret, ExpMinutes: 5, Issuer: "medstock"}), users
}

func TestEnsureAdmin_CreaUnaSolaVez(t *testing.T) {
	uc, users := newAuth(t)

	created, err := uc.EnsureAdmin(context.Background(), " Admin@Medstock.local ", "cambiar-esto")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = uc.EnsureAdmin(context.Background(), "admin@medstock.local", "otra")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := users.GetByEmail(context.Background(), "admin@medstock.local")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, u.Role)
	assert.Equal(t, entity.UserStatusActive, u.Status)
}

func TestLogin_CredencialesYToken(t *testing.T) {
	uc, _ := newAuth(t)
	_, err := uc.EnsureAdmin(context.Background(), "admin@medstock.local", "cambiar-esto")
	require.NoError(t, err)

	resp, err := uc.Login(context.Background(), dto.LoginRequest{Email: "ADMIN@medstock.local", Password: "cambiar-esto"})
	require.NoError(t, err)
	assert.Equal(t, "Administrateur", resp.User.Role)

	claims, err := jwt.Parse(secret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = uc.Login(context.Background(), dto.LoginRequest{Email: "admin@medstock.local", Password: "mala"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Login(context.Background(), dto.LoginRequest{Email: "nadie@medstock.local", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAcceptInvitation_ActivaYPermiteLogin(t *testing.T) {
	uc, users := newAuth(t)
	users2 := usecase.NewUserUseCase(users, nil, "", nil)
	admin := entity.Actor{UserID: 999, Role: entity.RoleAdmin, Permissions: entity.DefaultPermissions(entity.RoleAdmin)}

	invited, err := users2.Invite(context.Background(), admin, dto.InviteUserRequest{Email: "lea@medstock.local", Name: "Léa", Role: "Utilisateur"})
	require.NoError(t, err)
	token := *invited.InvitationToken

	_, err = uc.Login(context.Background(), dto.LoginRequest{Email: "lea@medstock.local", Password: "whatever"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "un invitado no tiene contraseña todavía")

	_, err = uc.AcceptInvitation(context.Background(), dto.AcceptInvitationRequest{Token: token, Password: "corta"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	resp, err := uc.AcceptInvitation(context.Background(), dto.AcceptInvitationRequest{Token: token, Password: "una-buena-clave"})
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusActive, resp.User.Status)

	_, err = uc.AcceptInvitation(context.Background(), dto.AcceptInvitationRequest{Token: token, Password: "una-buena-clave"})
	assert.ErrorIs(t, err, domain.ErrNotFound, "el token se consume al aceptar")

	_, err = uc.Login(context.Background(), dto.LoginRequest{Email: "lea@medstock.local", Password: "una-buena-clave"})
	assert.NoError(t, err)
}

func TestResolveActor_UsuarioDesactivadoPierdeAcceso(t *testing.T) {
	uc, users := newAuth(t)
	_, err := uc.EnsureAdmin(context.Background(), "admin@medstock.local", "cambiar-esto")
	require.NoError(t, err)
	u, err := users.GetByEmail(context.Background(), "admin@medstock.local")
	require.NoError(t, err)

	actor, err := uc.ResolveActor(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, actor.Can(entity.CapUsersManage))

	u.Status = entity.UserStatusDisabled
	require.NoError(t, users.Update(context.Background(), u))
	_, err = uc.ResolveActor(context.Background(), u.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.ResolveActor(context.Background(), 424242)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(context.Background(), dto.LoginRequest{Email: "admin@medstock.local", Password: "cambiar-esto"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
