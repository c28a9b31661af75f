package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/facturacion-mx/internal/application/dto"
	"github.com/tu-usuario/facturacion-mx/internal/application/fiscal"
)

// FiscalHandler expone el ciclo de vida del documento fiscal que no pasa por
// el PAC: creación, estado derivado, bitácora y representación impresa.
type FiscalHandler struct {
	uc    *fiscal.UseCase
	pdfUC *fiscal.PDFUseCase
}

// NewFiscalHandler construye el handler.
func NewFiscalHandler(uc *fiscal.UseCase, pdfUC *fiscal.PDFUseCase) *FiscalHandler {
	return &FiscalHandler{uc: uc, pdfUC: pdfUC}
}

// Create crea el documento fiscal de una factura submitted.
// POST /api/facturas
func (h *FiscalHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateFacturaFiscalRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.SalesInvoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "sales_invoice_id requerido"})
	}
	ffm, err := h.uc.CreateFacturaFiscal(c.Context(), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FacturaFiscalResponse{
		ID:               ffm.ID,
		SalesInvoice:     ffm.SalesInvoice,
		CustomerID:       ffm.CustomerID,
		FiscalStatus:     ffm.FiscalStatus,
		CFDIUse:          ffm.CFDIUse,
		PaymentMethodSAT: ffm.PaymentMethodSAT,
		TotalFiscal:      ffm.TotalFiscal,
	})
}

// Estado devuelve el estado fiscal derivado del Response Log.
// GET /api/facturas/:invoice_id/estado
func (h *FiscalHandler) Estado(c *fiber.Ctx) error {
	invoiceID := c.Params("invoice_id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id requerido"})
	}
	resp, err := h.uc.GetEstado(c.Context(), invoiceID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}

// Logs devuelve la bitácora de respuestas PAC del documento fiscal.
// GET /api/facturas/:invoice_id/logs
func (h *FiscalHandler) Logs(c *fiber.Ctx) error {
	invoiceID := c.Params("invoice_id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id requerido"})
	}
	logs, err := h.uc.ListLogs(c.Context(), invoiceID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(logs)
}

// PDF genera la representación impresa del CFDI timbrado.
// GET /api/facturas/:invoice_id/pdf
func (h *FiscalHandler) PDF(c *fiber.Ctx) error {
	invoiceID := c.Params("invoice_id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id requerido"})
	}
	data, filename, err := h.pdfUC.GenerateBySalesInvoice(c.Context(), invoiceID)
	if err != nil {
		return errorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(data)
}
