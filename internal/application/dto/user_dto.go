package dto

import "time"

// InviteUserRequest body de POST /api/users (invitación por un administrador).
type InviteUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Role  string `json:"role" validate:"required,oneof=Administrateur Gestionnaire Utilisateur"`
}

// UpdateUserRequest cambio de rol y/o permisos explícitos.
// Permissions no nil sobrescribe los permisos del rol; ResetPermissions vuelve a los del rol.
type UpdateUserRequest struct {
	Name             *string   `json:"name"`
	Role             *string   `json:"role"`
	Permissions      *[]string `json:"permissions"`
	ResetPermissions bool      `json:"reset_permissions"`
	Status           *string   `json:"status"`
}

// AcceptInvitationRequest body de POST /api/auth/accept-invitation.
type AcceptInvitationRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	Role                  string    `json:"role"`
	Permissions           []string  `json:"permissions"`
	PermissionsOverridden bool      `json:"permissions_overridden"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// UserListResponse lista paginada de usuarios.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
