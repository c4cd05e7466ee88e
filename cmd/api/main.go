package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/medstock-api/internal/application/approval"
	"github.com/jhoicas/medstock-api/internal/application/auth"
	"github.com/jhoicas/medstock-api/internal/application/dashboard"
	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/application/stock"
	"github.com/jhoicas/medstock-api/internal/application/usecase"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/internal/infrastructure/cache"
	"github.com/jhoicas/medstock-api/internal/infrastructure/events"
	"github.com/jhoicas/medstock-api/internal/infrastructure/mail"
	"github.com/jhoicas/medstock-api/internal/infrastructure/memory"
	"github.com/jhoicas/medstock-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/medstock-api/internal/infrastructure/pdf"
	"github.com/jhoicas/medstock-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/medstock-api/internal/interfaces/http"
	"github.com/jhoicas/medstock-api/pkg/config"
	"github.com/jhoicas/medstock-api/pkg/logger"
	"github.com/jhoicas/medstock-api/pkg/tracing"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido")
	}

	ctx := context.Background()

	tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar tracing")
	}
	defer func() {
		if err := tracing.Shutdown(context.Background(), tp); err != nil {
			log.Warn().Err(err).Msg("cerrar tracing")
		}
	}()

	// Almacenamiento: PostgreSQL o memoria (demos).
	var (
		txRunner repository.TxRunner
		repos    repository.TxRepos
		userRepo repository.UserRepository
	)
	switch cfg.App.Storage {
	case "memory":
		store := memory.NewStore()
		txRunner = memory.NewTxRunner(store)
		repos = store.Repos()
		userRepo = store.Users()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner = postgres.NewTxRunner(pool)
		repos = postgres.NewRepos(pool)
		userRepo = postgres.NewUserRepository(pool)
	}

	// Adaptadores opcionales.
	var summaryCache ports.SummaryCache
	if cfg.Redis.Enabled() {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis no disponible, tablero sin cache")
		} else {
			defer client.Close()
			summaryCache = cache.NewRedisSummaryCache(client, cfg.Redis.SummaryTTL)
		}
	}

	var publisher ports.EventPublisher
	if cfg.Kafka.Enabled() {
		pub, err := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Warn().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka no disponible, eventos desactivados")
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	var mailer ports.Mailer
	if cfg.Mail.Enabled() {
		mailer = mail.NewSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From)
	} else {
		log.Warn().Msg("SMTP no configurado: las invitaciones no se envían por correo")
	}

	recorder := metrics.NewRecorder(nil)

	// Servicios
	engine := stock.NewEngine(recorder)
	effects := stock.NewEffects(publisher, summaryCache, log)
	receipts := stock.NewReceiptService(txRunner, repos.Receipts, engine, effects, infrapdf.NewMarotoPDFGenerator("MedStock"))
	stockouts := stock.NewStockOutService(txRunner, repos.Movements, engine, effects)
	inventories := stock.NewInventoryService(txRunner, repos.Inventories, engine, effects)
	vehicleUC := usecase.NewVehicleUseCase(txRunner, repos.Vehicles)
	executors := approval.NewExecutors(receipts, stockouts, vehicleUC)
	workflow := approval.NewWorkflow(txRunner, repos.Operations, executors, effects, recorder, log)
	needs := approval.NewNeedService(txRunner, repos.Needs, repos.Products, effects, recorder, log)
	productUC := usecase.NewProductUseCase(repos.Products)
	userUC := usecase.NewUserUseCase(userRepo, mailer, cfg.Mail.InvitationURL, log)
	dashboardUC := dashboard.NewUseCase(repos, summaryCache, log)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	created, err := authUC.EnsureAdmin(ctx, cfg.App.AdminEmail, cfg.App.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("crear administrador inicial")
	}
	if created {
		log.Info().Str("email", cfg.App.AdminEmail).Msg("administrador inicial creado")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.HTTP.CORSOrigins}))

	// Swagger UI en local: http://localhost:<port>/docs (requiere `swag init`)
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "MedStock API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		UserUC:      userUC,
		ProductUC:   productUC,
		VehicleUC:   vehicleUC,
		Receipts:    receipts,
		StockOuts:   stockouts,
		Inventories: inventories,
		Workflow:    workflow,
		Needs:       needs,
		DashboardUC: dashboardUC,
		Metrics:     recorder,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
