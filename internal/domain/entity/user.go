package entity

import (
	"slices"
	"time"
)

// Role rol de un usuario. Conjunto cerrado.
type Role string

// Roles válidos.
const (
	RoleAdmin   Role = "Administrateur"
	RoleManager Role = "Gestionnaire"
	RoleUser    Role = "Utilisateur"
)

// ParseRole valida un rol recibido como texto.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleUser:
		return Role(s), true
	}
	return "", false
}

// Estados de usuario.
const (
	UserStatusActive   = "active"
	UserStatusInvited  = "invited"
	UserStatusDisabled = "disabled"
)

// User usuario de la aplicación.
type User struct {
	ID                    int64
	Name                  string
	Email                 string
	PasswordHash          string
	Role                  Role
	Permissions           []Capability // solo se usa si PermissionsOverridden
	PermissionsOverridden bool
	Status                string
	InvitationToken       *string
	InvitedAt             *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// EffectivePermissions devuelve los permisos del rol salvo que un administrador los haya sobrescrito.
// Las capacidades reservadas al administrador nunca se conceden a otro rol.
func (u *User) EffectivePermissions() []Capability {
	if u.PermissionsOverridden {
		return restrictTo(u.Role, slices.Clone(u.Permissions))
	}
	return DefaultPermissions(u.Role)
}

// Actor construye el actor autenticado a partir del usuario.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role, Permissions: u.EffectivePermissions()}
}

// Actor es el usuario que ejecuta una operación (resuelto por la capa de auth).
type Actor struct {
	UserID      int64
	Role        Role
	Permissions []Capability
}

// Can indica si el actor tiene la capacidad.
func (a Actor) Can(c Capability) bool {
	return slices.Contains(a.Permissions, c)
}

// IsAdmin atajo para el rol administrador.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanDecide indica si el actor puede aprobar o rechazar: rol administrador y capacidad de aprobación.
func (a Actor) CanDecide() bool {
	return a.IsAdmin() && a.Can(CapOperationsApprove)
}

// CanManageUsers exige el rol administrador además de la capacidad.
func (a Actor) CanManageUsers() bool {
	return a.IsAdmin() && a.Can(CapUsersManage)
}
