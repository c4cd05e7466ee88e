package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/medstock-api/internal/application/approval"
	"github.com/jhoicas/medstock-api/internal/application/auth"
	"github.com/jhoicas/medstock-api/internal/application/dashboard"
	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/application/usecase"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/infrastructure/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	ProductUC   *usecase.ProductUseCase
	VehicleUC   *usecase.VehicleUseCase
	Receipts    *stock.ReceiptService
	StockOuts   *stock.StockOutService
	Inventories *stock.InventoryService
	Workflow    *approval.Workflow
	Needs       *approval.NeedService
	DashboardUC *dashboard.UseCase
	// Metrics opcional; si existe se instrumentan las rutas y se expone /metrics.
	Metrics  *metrics.Recorder
	Gatherer prometheus.Gatherer
	// ActorResolver opcional; por defecto AuthUC.
	ActorResolver ActorResolver
	JWTSecret     string
	ServiceName   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC, deps.UserUC)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/accept-invitation", authHandler.AcceptInvitation)

	// Rutas protegidas (requieren Bearer Token)
	resolver := deps.ActorResolver
	if resolver == nil && deps.AuthUC != nil {
		resolver = deps.AuthUC
	}
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, resolver))
	can := RequireCapability

	protected.Get("/me", authHandler.Me)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", can(entity.CapProductsView), productHandler.List)
	products.Get("/critical", can(entity.CapProductsView), productHandler.Critical)
	products.Get("/:id", can(entity.CapProductsView), productHandler.GetByID)
	products.Post("/", can(entity.CapProductsManage), productHandler.Create)
	products.Put("/:id", can(entity.CapProductsManage), productHandler.Update)
	products.Delete("/:id", can(entity.CapProductsManage), productHandler.Delete)

	// Receipts, stock-outs, inventories (rutas directas)
	stockHandler := NewStockHandler(deps.Receipts, deps.StockOuts, deps.Inventories)
	receipts := protected.Group("/receipts")
	receipts.Get("/", can(entity.CapProductsView), stockHandler.ListReceipts)
	receipts.Get("/:id", can(entity.CapProductsView), stockHandler.GetReceipt)
	receipts.Get("/:id/pdf", can(entity.CapProductsView), stockHandler.ReceiptPDF)
	receipts.Post("/", can(entity.CapReceiptsCreate), stockHandler.CreateReceipt)

	stockouts := protected.Group("/stockouts")
	stockouts.Get("/", can(entity.CapProductsView), stockHandler.ListStockOuts)
	stockouts.Post("/", can(entity.CapStockOutsCreate), stockHandler.CreateStockOut)

	inventories := protected.Group("/inventories")
	inventories.Get("/", can(entity.CapProductsView), stockHandler.ListInventories)
	inventories.Get("/:id", can(entity.CapProductsView), stockHandler.GetInventory)
	inventories.Post("/", can(entity.CapInventoriesCreate), stockHandler.CreateInventory)

	// Approval workflow
	opHandler := NewOperationHandler(deps.Workflow, deps.Needs)
	operations := protected.Group("/operations")
	operations.Post("/", can(entity.CapOperationsSubmit), opHandler.Submit)
	operations.Get("/", can(entity.CapOperationsApprove), opHandler.List)
	operations.Get("/mine", opHandler.Mine)
	operations.Get("/:id", opHandler.Get)
	operations.Post("/:id/approve", can(entity.CapOperationsApprove), opHandler.Approve)
	operations.Post("/:id/reject", can(entity.CapOperationsApprove), opHandler.Reject)

	needs := protected.Group("/needs")
	needs.Post("/", can(entity.CapNeedsCreate), opHandler.CreateNeed)
	needs.Get("/", opHandler.ListNeeds)
	needs.Get("/:id", opHandler.GetNeed)
	needs.Post("/:id/approve", can(entity.CapOperationsApprove), opHandler.ApproveNeed)
	needs.Post("/:id/reject", can(entity.CapOperationsApprove), opHandler.RejectNeed)

	// Vehicles
	vehicles := protected.Group("/vehicles")
	vehicleHandler := NewVehicleHandler(deps.VehicleUC)
	vehicles.Get("/", can(entity.CapVehiclesView), vehicleHandler.List)
	vehicles.Get("/:id", can(entity.CapVehiclesView), vehicleHandler.GetByID)
	vehicles.Get("/:id/assignments", can(entity.CapVehiclesView), vehicleHandler.Assignments)
	vehicles.Get("/:id/maintenances", can(entity.CapVehiclesView), vehicleHandler.Maintenances)
	vehicles.Post("/", can(entity.CapVehiclesManage), vehicleHandler.Create)
	vehicles.Put("/:id", can(entity.CapVehiclesManage), vehicleHandler.Update)
	vehicles.Delete("/:id", can(entity.CapVehiclesManage), vehicleHandler.Delete)
	vehicles.Post("/:id/assign", can(entity.CapVehiclesManage), vehicleHandler.Assign)
	vehicles.Post("/:id/unassign", can(entity.CapVehiclesManage), vehicleHandler.Unassign)
	vehicles.Post("/:id/reform", can(entity.CapVehiclesManage), vehicleHandler.Reform)
	vehicles.Post("/:id/maintenances", can(entity.CapVehiclesManage), vehicleHandler.AddMaintenance)
	vehicles.Delete("/:id/maintenances/:mid", can(entity.CapVehiclesManage), vehicleHandler.DeleteMaintenance)

	// Users (administración)
	users := protected.Group("/users", can(entity.CapUsersManage))
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", userHandler.List)
	users.Post("/", userHandler.Invite)
	users.Put("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)

	// Dashboard
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	protected.Get("/dashboard/summary", can(entity.CapDashboardView), dashboardHandler.GetSummary)
}
