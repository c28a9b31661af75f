package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/facturacion-mx/internal/application/auth"
	"github.com/tu-usuario/facturacion-mx/internal/application/fiscal"
	"github.com/tu-usuario/facturacion-mx/internal/application/timbrado"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	TimbradoSvc *timbrado.Service
	FiscalUC    *fiscal.UseCase
	PDFUC       *fiscal.PDFUseCase
	AuthUC      *auth.UseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Catálogos SAT (protegido, solo lectura)
	catalogHandler := NewCatalogHandler()
	protected.Get("/catalogos/motivos-cancelacion", catalogHandler.MotivosCancelacion)

	// Documento fiscal + protocolo PAC (protegido)
	facturas := protected.Group("/facturas")
	fiscalHandler := NewFiscalHandler(deps.FiscalUC, deps.PDFUC)
	timbradoHandler := NewTimbradoHandler(deps.TimbradoSvc)

	facturas.Post("/", fiscalHandler.Create)
	facturas.Get("/:invoice_id/estado", fiscalHandler.Estado)
	facturas.Get("/:invoice_id/logs", fiscalHandler.Logs)
	facturas.Get("/:invoice_id/pdf", fiscalHandler.PDF)

	facturas.Post("/:invoice_id/timbrar", timbradoHandler.Timbrar)
	facturas.Post("/:invoice_id/cancelar", timbradoHandler.Cancelar)
	facturas.Post("/:invoice_id/sustituir", timbradoHandler.Sustituir)
	facturas.Get("/:invoice_id/refacturar/validar", timbradoHandler.ValidarRefacturacion)
}
