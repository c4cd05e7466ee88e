package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/internal/infrastructure/pdf"
)

// StockHandler rutas directas de recepciones, salidas e inventarios.
// Usan las mismas funciones transaccionales que la aprobación de operaciones.
type StockHandler struct {
	receipts    *stock.ReceiptService
	stockouts   *stock.StockOutService
	inventories *stock.InventoryService
}

// NewStockHandler construye el handler.
func NewStockHandler(receipts *stock.ReceiptService, stockouts *stock.StockOutService, inventories *stock.InventoryService) *StockHandler {
	return &StockHandler{receipts: receipts, stockouts: stockouts, inventories: inventories}
}

// ── Recepciones ───────────────────────────────────────────────────────────────

// CreateReceipt godoc
// @Summary      Registrar recepción
// @Description  Suma las cantidades al stock; los productos sin id se resuelven por nombre o se crean.
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReceiptRequest  true  "Recepción"
// @Success      201   {object}  dto.IDResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/receipts [post]
func (h *StockHandler) CreateReceipt(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreateReceiptRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	r, err := h.receipts.Create(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IDResponse{ID: r.ID})
}

// ListReceipts godoc
// @Summary      Listar recepciones
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {array}  dto.ReceiptResponse
// @Router       /api/receipts [get]
func (h *StockHandler) ListReceipts(c *fiber.Ctx) error {
	page, _ := pageFromQuery(c)
	list, err := h.receipts.List(c.UserContext(), page)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.ReceiptResponse, 0, len(list))
	for _, r := range list {
		items = append(items, dto.NewReceiptResponse(r))
	}
	return c.JSON(items)
}

// GetReceipt godoc
// @Summary      Obtener recepción con sus líneas
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la recepción"
// @Success      200  {object}  dto.ReceiptResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id} [get]
func (h *StockHandler) GetReceipt(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	r, err := h.receipts.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewReceiptResponse(r))
}

// ReceiptPDF godoc
// @Summary      Bon de réception en PDF
// @Tags         receipts
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  int  true  "ID de la recepción"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id}/pdf [get]
func (h *StockHandler) ReceiptPDF(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	r, err := h.receipts.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	doc, err := h.receipts.PDF(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+pdf.ReceiptNumber(r)+`.pdf"`)
	return c.Send(doc)
}

// ── Salidas ───────────────────────────────────────────────────────────────────

// CreateStockOut godoc
// @Summary      Registrar salida de stock
// @Description  exit_type Définitive (por defecto) o Provisoire.
// @Tags         stockouts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateStockOutRequest  true  "Salida"
// @Success      201   {object}  dto.IDResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stockouts [post]
func (h *StockHandler) CreateStockOut(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreateStockOutRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	m, err := h.stockouts.Create(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IDResponse{ID: m.ID})
}

// ListStockOuts godoc
// @Summary      Listar salidas
// @Tags         stockouts
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  int     false  "Filtrar por producto"
// @Param        from        query  string  false  "Desde (AAAA-MM-DD)"
// @Param        to          query  string  false  "Hasta (AAAA-MM-DD, inclusive)"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200         {array}  dto.MovementResponse
// @Failure      400         {object}  dto.ErrorResponse
// @Router       /api/stockouts [get]
func (h *StockHandler) ListStockOuts(c *fiber.Ctx) error {
	page, _ := pageFromQuery(c)
	filter := repository.MovementFilter{ProductID: int64(c.QueryInt("product_id", 0)), Page: page}
	v := domain.NewValidationError()
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(entity.DateLayout, s)
		if err != nil {
			v.Add("from", "formato AAAA-MM-DD")
		}
		filter.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(entity.DateLayout, s)
		if err != nil {
			v.Add("to", "formato AAAA-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	if err := v.OrNil(); err != nil {
		return writeError(c, err)
	}
	list, err := h.stockouts.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.NewMovementResponse(m))
	}
	return c.JSON(items)
}

// ── Inventarios ───────────────────────────────────────────────────────────────

// CreateInventory godoc
// @Summary      Registrar inventario
// @Description  Cada línea fija la cantidad contada y registra la variación.
// @Tags         inventories
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInventoryRequest  true  "Conteo"
// @Success      201   {object}  dto.IDResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventories [post]
func (h *StockHandler) CreateInventory(c *fiber.Ctx) error {
	actor, err := mustActor(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreateInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	inv, err := h.inventories.Create(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IDResponse{ID: inv.ID})
}

// ListInventories godoc
// @Summary      Listar inventarios
// @Tags         inventories
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {array}  dto.InventoryResponse
// @Router       /api/inventories [get]
func (h *StockHandler) ListInventories(c *fiber.Ctx) error {
	page, _ := pageFromQuery(c)
	list, err := h.inventories.List(c.UserContext(), page)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.InventoryResponse, 0, len(list))
	for _, inv := range list {
		items = append(items, dto.NewInventoryResponse(inv))
	}
	return c.JSON(items)
}

// GetInventory godoc
// @Summary      Obtener inventario con sus líneas
// @Tags         inventories
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del inventario"
// @Success      200  {object}  dto.InventoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventories/{id} [get]
func (h *StockHandler) GetInventory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	inv, err := h.inventories.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInventoryResponse(inv))
}
