package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

// CatalogHandler expone los catálogos SAT que la UI necesita.
type CatalogHandler struct{}

// NewCatalogHandler construye el handler.
func NewCatalogHandler() *CatalogHandler { return &CatalogHandler{} }

// MotivosCancelacion devuelve el catálogo de motivos de cancelación con el
// mapa de exigencia de UUID y las opciones de Select.
// GET /api/catalogos/motivos-cancelacion
func (h *CatalogHandler) MotivosCancelacion(c *fiber.Ctx) error {
	return c.JSON(sat.GetCancellationMotiveCatalog())
}
