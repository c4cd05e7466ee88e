package entity

import "slices"

// Capability permiso atómico que se comprueba en cada punto de entrada.
type Capability string

// Capacidades conocidas.
const (
	CapProductsView      Capability = "products.view"
	CapProductsManage    Capability = "products.manage"
	CapReceiptsCreate    Capability = "receipts.create"
	CapStockOutsCreate   Capability = "stockouts.create"
	CapInventoriesCreate Capability = "inventories.create"
	CapVehiclesView      Capability = "vehicles.view"
	CapVehiclesManage    Capability = "vehicles.manage"
	CapNeedsCreate       Capability = "needs.create"
	CapOperationsSubmit  Capability = "operations.submit"
	CapOperationsApprove Capability = "operations.approve"
	CapUsersManage       Capability = "users.manage"
	CapDashboardView     Capability = "dashboard.view"
)

// AllCapabilities lista ordenada de todas las capacidades.
var AllCapabilities = []Capability{
	CapProductsView, CapProductsManage,
	CapReceiptsCreate, CapStockOutsCreate, CapInventoriesCreate,
	CapVehiclesView, CapVehiclesManage,
	CapNeedsCreate, CapOperationsSubmit, CapOperationsApprove,
	CapUsersManage, CapDashboardView,
}

var defaultPermissions = map[Role][]Capability{
	RoleAdmin: AllCapabilities,
	RoleManager: {
		CapProductsView, CapProductsManage,
		CapReceiptsCreate, CapStockOutsCreate, CapInventoriesCreate,
		CapVehiclesView, CapVehiclesManage,
		CapNeedsCreate, CapOperationsSubmit, CapDashboardView,
	},
	RoleUser: {
		CapProductsView, CapVehiclesView,
		CapNeedsCreate, CapOperationsSubmit, CapDashboardView,
	},
}

// DefaultPermissions es la única tabla rol → permisos. Devuelve una copia.
func DefaultPermissions(role Role) []Capability {
	return slices.Clone(defaultPermissions[role])
}

// ParseCapabilities valida una lista de permisos; devuelve los desconocidos.
func ParseCapabilities(in []string) (caps []Capability, unknown []string) {
	for _, s := range in {
		c := Capability(s)
		if !slices.Contains(AllCapabilities, c) {
			unknown = append(unknown, s)
			continue
		}
		if !slices.Contains(caps, c) {
			caps = append(caps, c)
		}
	}
	return caps, unknown
}

// adminOnly capacidades reservadas al rol Administrateur; no se conceden a otros roles.
var adminOnly = []Capability{CapOperationsApprove, CapUsersManage}

// AdminOnly indica si la capacidad solo puede tenerla un administrador.
func AdminOnly(c Capability) bool {
	return slices.Contains(adminOnly, c)
}

// ForbiddenFor devuelve las capacidades de caps que el rol no puede recibir.
func ForbiddenFor(role Role, caps []Capability) []Capability {
	if role == RoleAdmin {
		return nil
	}
	var out []Capability
	for _, c := range caps {
		if AdminOnly(c) {
			out = append(out, c)
		}
	}
	return out
}

// restrictTo quita de caps lo que el rol no puede tener.
func restrictTo(role Role, caps []Capability) []Capability {
	if role == RoleAdmin {
		return caps
	}
	return slices.DeleteFunc(caps, AdminOnly)
}
