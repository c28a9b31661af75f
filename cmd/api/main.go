package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tu-usuario/facturacion-mx/internal/application/auth"
	"github.com/tu-usuario/facturacion-mx/internal/application/fiscal"
	"github.com/tu-usuario/facturacion-mx/internal/application/recovery"
	"github.com/tu-usuario/facturacion-mx/internal/application/timbrado"
	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/facturapi"
	infrapdf "github.com/tu-usuario/facturacion-mx/internal/infrastructure/pdf"
	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/postgres"
	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/storage"
	httpRouter "github.com/tu-usuario/facturacion-mx/internal/interfaces/http"
	"github.com/tu-usuario/facturacion-mx/pkg/config"
	"github.com/tu-usuario/facturacion-mx/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Bool("pac_sandbox", cfg.PAC.Sandbox).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios atados al pool. La fase 3 del protocolo abre su propia
	// transacción vía TxRunner; el Response Log siempre escribe por fuera.
	ffmRepo := postgres.NewFacturaFiscalRepository(pool)
	siRepo := postgres.NewSalesInvoiceRepository(pool)
	custRepo := postgres.NewCustomerRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	logRepo := postgres.NewResponseLogRepository(pool)
	eventRepo := postgres.NewFiscalEventRepository(pool)
	recoveryRepo := postgres.NewRecoveryTaskRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	locker := postgres.NewAdvisoryLocker(pool, 10*time.Second)

	pacClient := facturapi.NewClient(cfg.PAC)

	fileStore, err := storage.NewLocalFileStore(cfg.Storage.AttachmentsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("almacén de adjuntos")
	}

	timbradoSvc := timbrado.NewService(
		ffmRepo, siRepo, custRepo, logRepo, eventRepo, recoveryRepo,
		pacClient, txRunner, locker, fileStore,
		cfg.PAC, cfg.Fiscal, log,
	)
	fiscalUC := fiscal.NewUseCase(ffmRepo, siRepo, custRepo, logRepo, eventRepo, cfg.Fiscal, log)

	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	pdfUC := fiscal.NewPDFUseCase(ffmRepo, siRepo, custRepo, companyRepo, pdfGenerator)

	authUC := auth.NewUseCase(userRepo, cfg.JWT)

	// Worker de reparación: drena las tareas "el PAC tuvo éxito, lo local no".
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go recovery.NewWorker(recoveryRepo, ffmRepo, eventRepo, time.Minute, log).Run(workerCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación MX API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		TimbradoSvc: timbradoSvc,
		FiscalUC:    fiscalUC,
		PDFUC:       pdfUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
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
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
