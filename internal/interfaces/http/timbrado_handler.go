package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/facturacion-mx/internal/application/dto"
	"github.com/tu-usuario/facturacion-mx/internal/application/timbrado"
)

// TimbradoHandler expone el protocolo PAC: timbrado, cancelación, sustitución
// y el guard de re-facturación.
type TimbradoHandler struct {
	svc *timbrado.Service
}

// NewTimbradoHandler construye el handler.
func NewTimbradoHandler(svc *timbrado.Service) *TimbradoHandler {
	return &TimbradoHandler{svc: svc}
}

// Timbrar timbra la factura de venta ante el PAC.
// POST /api/facturas/:invoice_id/timbrar
//
// Un rechazo del PAC NO es error HTTP: regresa 200 con success=false porque la
// operación sí corrió y quedó en la bitácora. Los errores de validación
// previos al PAC sí son 4xx.
func (h *TimbradoHandler) Timbrar(c *fiber.Ctx) error {
	invoiceID := c.Params("invoice_id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id requerido"})
	}
	resp, err := h.svc.TimbrarFactura(c.Context(), invoiceID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}

// Cancelar cancela el CFDI timbrado de la factura.
// POST /api/facturas/:invoice_id/cancelar
func (h *TimbradoHandler) Cancelar(c *fiber.Ctx) error {
	invoiceID := c.Params("invoice_id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id requerido"})
	}
	var in dto.CancelacionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Motivo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "motivo requerido (01-04)"})
	}
	resp, err := h.svc.CancelarFactura(c.Context(), invoiceID, in.Motivo, in.SubstitutionUUID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}

// Sustituir crea el borrador de sustitución de la factura timbrada.
// POST /api/facturas/:invoice_id/sustituir
func (h *TimbradoHandler) Sustituir(c *fiber.Ctx) error {
	invoiceID := c.Params("invoice_id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id requerido"})
	}
	resp, err := h.svc.CreateSubstitutionInvoice(c.Context(), invoiceID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ValidarRefacturacion evalúa si la factura puede re-timbrarse tal cual tras
// una cancelación con motivo 02/03/04.
// GET /api/facturas/:invoice_id/refacturar/validar
func (h *TimbradoHandler) ValidarRefacturacion(c *fiber.Ctx) error {
	invoiceID := c.Params("invoice_id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id requerido"})
	}
	resp, err := h.svc.ValidateRefacturacionMismaSI(c.Context(), invoiceID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}
