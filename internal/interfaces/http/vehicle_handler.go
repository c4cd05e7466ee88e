package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/usecase"
)

// VehicleHandler flota de vehículos y sus mantenimientos.
type VehicleHandler struct {
	uc  *usecase.VehicleUseCase
	now func() time.Time
}

// NewVehicleHandler construye el handler.
func NewVehicleHandler(uc *usecase.VehicleUseCase) *VehicleHandler {
	return &VehicleHandler{uc: uc, now: time.Now}
}

// Create godoc
// @Summary      Alta de vehículo
// @Tags         vehicles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateVehicleRequest  true  "Vehículo"
// @Success      201   {object}  dto.VehicleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/vehicles [post]
func (h *VehicleHandler) Create(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreateVehicleRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	v, err := h.uc.Create(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewVehicleResponse(v, nil))
}

// List godoc
// @Summary      Listar vehículos
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending | assigned | reformed"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {array}  dto.VehicleResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/vehicles [get]
func (h *VehicleHandler) List(c *fiber.Ctx) error {
	page, _ := pageFromQuery(c)
	list, err := h.uc.List(c.UserContext(), c.Query("status"), page)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.VehicleResponse, 0, len(list))
	for _, v := range list {
		items = append(items, dto.NewVehicleResponse(v, nil))
	}
	return c.JSON(items)
}

// GetByID godoc
// @Summary      Obtener vehículo con su asignación activa
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del vehículo"
// @Success      200  {object}  dto.VehicleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id} [get]
func (h *VehicleHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	v, active, err := h.uc.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewVehicleResponse(v, active))
}

// Update godoc
// @Summary      Actualizar datos descriptivos
// @Tags         vehicles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                       true  "ID del vehículo"
// @Param        body  body  dto.UpdateVehicleRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.VehicleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id} [put]
func (h *VehicleHandler) Update(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var in dto.UpdateVehicleRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	v, err := h.uc.Update(c.UserContext(), actor, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewVehicleResponse(v, nil))
}

// Delete godoc
// @Summary      Eliminar vehículo
// @Description  Solo si nunca fue asignado.
// @Tags         vehicles
// @Security     Bearer
// @Param        id   path  int  true  "ID del vehículo"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id} [delete]
func (h *VehicleHandler) Delete(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.uc.Delete(c.UserContext(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Assign godoc
// @Summary      Asignar vehículo
// @Tags         vehicles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                       true  "ID del vehículo"
// @Param        body  body  dto.AssignVehicleRequest  true  "Asignación"
// @Success      201   {object}  dto.AssignmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/assign [post]
func (h *VehicleHandler) Assign(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var in dto.AssignVehicleRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	a, err := h.uc.Assign(c.UserContext(), actor, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAssignmentResponse(a))
}

// Unassign godoc
// @Summary      Liberar vehículo
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del vehículo"
// @Success      200  {object}  dto.VehicleResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/unassign [post]
func (h *VehicleHandler) Unassign(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	v, err := h.uc.Unassign(c.UserContext(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewVehicleResponse(v, nil))
}

// Reform godoc
// @Summary      Reformar vehículo
// @Description  Estado terminal; cierra la asignación activa si existe.
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del vehículo"
// @Success      200  {object}  dto.VehicleResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/reform [post]
func (h *VehicleHandler) Reform(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	v, err := h.uc.Reform(c.UserContext(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewVehicleResponse(v, nil))
}

// Assignments godoc
// @Summary      Historial de asignaciones
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del vehículo"
// @Success      200  {array}  dto.AssignmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/assignments [get]
func (h *VehicleHandler) Assignments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.uc.Assignments(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.AssignmentResponse, 0, len(list))
	for _, a := range list {
		items = append(items, dto.NewAssignmentResponse(a))
	}
	return c.JSON(items)
}

// ── Mantenimientos ────────────────────────────────────────────────────────────

// Maintenances godoc
// @Summary      Mantenimientos del vehículo
// @Tags         vehicles
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del vehículo"
// @Success      200  {array}  dto.MaintenanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/maintenances [get]
func (h *VehicleHandler) Maintenances(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.uc.Maintenances(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	now := h.now()
	items := make([]dto.MaintenanceResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.NewMaintenanceResponse(m, usecase.IsOverdue(m, now)))
	}
	return c.JSON(items)
}

// AddMaintenance godoc
// @Summary      Registrar mantenimiento
// @Tags         vehicles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                           true  "ID del vehículo"
// @Param        body  body  dto.CreateMaintenanceRequest  true  "Mantenimiento"
// @Success      201   {object}  dto.MaintenanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/maintenances [post]
func (h *VehicleHandler) AddMaintenance(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreateMaintenanceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	m, err := h.uc.AddMaintenance(c.UserContext(), actor, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMaintenanceResponse(m, usecase.IsOverdue(m, h.now())))
}

// DeleteMaintenance godoc
// @Summary      Eliminar mantenimiento
// @Tags         vehicles
// @Security     Bearer
// @Param        id   path  int  true  "ID del vehículo"
// @Param        mid  path  int  true  "ID del mantenimiento"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vehicles/{id}/maintenances/{mid} [delete]
func (h *VehicleHandler) DeleteMaintenance(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	mid, err := paramID(c, "mid")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.uc.DeleteMaintenance(c.UserContext(), actor, id, mid); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
