package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medstock-api/internal/application/approval"
	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// OperationHandler flujo de aprobación: operaciones pendientes y necesidades.
type OperationHandler struct {
	workflow *approval.Workflow
	needs    *approval.NeedService
}

// NewOperationHandler construye el handler.
func NewOperationHandler(workflow *approval.Workflow, needs *approval.NeedService) *OperationHandler {
	return &OperationHandler{workflow: workflow, needs: needs}
}

// Submit godoc
// @Summary      Enviar operación a aprobación
// @Description  type: receipt | stockout | vehicle. data se valida según el tipo.
// @Tags         operations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SubmitOperationRequest  true  "Operación"
// @Success      201   {object}  dto.DecisionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/operations [post]
func (h *OperationHandler) Submit(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.SubmitOperationRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	op, err := h.workflow.Submit(c.UserContext(), actor, entity.OperationType(in.Type), in.Data)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DecisionResponse{OperationID: op.ID, Status: op.Status})
}

// List godoc
// @Summary      Listar operaciones
// @Description  Solo administradores.
// @Tags         operations
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending | approved | rejected"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {array}  dto.OperationResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Router       /api/operations [get]
func (h *OperationHandler) List(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.workflow.List(c.UserContext(), actor, requestFilter(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(operationResponses(list))
}

// Mine godoc
// @Summary      Mis operaciones
// @Tags         operations
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending | approved | rejected"
// @Success      200     {array}  dto.OperationResponse
// @Router       /api/operations/mine [get]
func (h *OperationHandler) Mine(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.workflow.Mine(c.UserContext(), actor, requestFilter(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(operationResponses(list))
}

// Get godoc
// @Summary      Obtener operación
// @Tags         operations
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la operación"
// @Success      200  {object}  dto.OperationResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/operations/{id} [get]
func (h *OperationHandler) Get(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	op, err := h.workflow.Get(c.UserContext(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewOperationResponse(op))
}

// Approve godoc
// @Summary      Aprobar operación
// @Description  Ejecuta la operación y la marca aprobada en la misma transacción.
// @Tags         operations
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la operación"
// @Success      200  {object}  dto.DecisionResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/operations/{id}/approve [post]
func (h *OperationHandler) Approve(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	op, err := h.workflow.Approve(c.UserContext(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.DecisionResponse{OperationID: op.ID, Status: op.Status})
}

// Reject godoc
// @Summary      Rechazar operación
// @Tags         operations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                true   "ID de la operación"
// @Param        body  body  dto.RejectRequest  false  "Motivo"
// @Success      200   {object}  dto.DecisionResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/operations/{id}/reject [post]
func (h *OperationHandler) Reject(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	in, err := rejectBody(c)
	if err != nil {
		return invalidBody(c)
	}
	op, err := h.workflow.Reject(c.UserContext(), actor, id, in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.DecisionResponse{OperationID: op.ID, Status: op.Status})
}

// ── Necesidades ───────────────────────────────────────────────────────────────

// CreateNeed godoc
// @Summary      Declarar necesidad
// @Tags         needs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateNeedRequest  true  "Necesidad"
// @Success      201   {object}  dto.NeedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/needs [post]
func (h *OperationHandler) CreateNeed(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreateNeedRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	n, err := h.needs.Create(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewNeedResponse(n))
}

// ListNeeds godoc
// @Summary      Listar necesidades
// @Description  Los administradores ven todas; el resto solo las propias.
// @Tags         needs
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending | approved | rejected"
// @Success      200     {array}  dto.NeedResponse
// @Router       /api/needs [get]
func (h *OperationHandler) ListNeeds(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.needs.List(c.UserContext(), actor, requestFilter(c))
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.NeedResponse, 0, len(list))
	for _, n := range list {
		items = append(items, dto.NewNeedResponse(n))
	}
	return c.JSON(items)
}

// GetNeed godoc
// @Summary      Obtener necesidad
// @Tags         needs
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la necesidad"
// @Success      200  {object}  dto.NeedResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/needs/{id} [get]
func (h *OperationHandler) GetNeed(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	n, err := h.needs.Get(c.UserContext(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewNeedResponse(n))
}

// ApproveNeed godoc
// @Summary      Aprobar necesidad
// @Tags         needs
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la necesidad"
// @Success      200  {object}  dto.NeedResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/needs/{id}/approve [post]
func (h *OperationHandler) ApproveNeed(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	n, err := h.needs.Approve(c.UserContext(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewNeedResponse(n))
}

// RejectNeed godoc
// @Summary      Rechazar necesidad
// @Tags         needs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                true   "ID de la necesidad"
// @Param        body  body  dto.RejectRequest  false  "Motivo"
// @Success      200   {object}  dto.NeedResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/needs/{id}/reject [post]
func (h *OperationHandler) RejectNeed(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	in, err := rejectBody(c)
	if err != nil {
		return invalidBody(c)
	}
	n, err := h.needs.Reject(c.UserContext(), actor, id, in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewNeedResponse(n))
}

// rejectBody el motivo es opcional: un cuerpo vacío es válido.
func rejectBody(c *fiber.Ctx) (dto.RejectRequest, error) {
	var in dto.RejectRequest
	if len(c.Body()) == 0 {
		return in, nil
	}
	err := c.BodyParser(&in)
	return in, err
}

func requestFilter(c *fiber.Ctx) repository.RequestFilter {
	page, _ := pageFromQuery(c)
	return repository.RequestFilter{Status: c.Query("status"), Page: page}
}

func operationResponses(list []*entity.PendingOperation) []dto.OperationResponse {
	items := make([]dto.OperationResponse, 0, len(list))
	for _, op := range list {
		items = append(items, dto.NewOperationResponse(op))
	}
	return items
}
