package dto

import "github.com/shopspring/decimal"

// TimbradoResponse resultado de POST /api/facturas/:invoice_id/timbrar.
// En éxito parcial (PAC timbró, reconciliación local falló) success es true,
// uuid viene poblado y warning explica el estado pendiente de conciliación.
type TimbradoResponse struct {
	Success     bool   `json:"success"`
	UUID        string `json:"uuid,omitempty"`
	FacturapiID string `json:"facturapi_id,omitempty"`
	Serie       string `json:"serie,omitempty"`
	Folio       string `json:"folio,omitempty"`
	Message     string `json:"message"`
	UserError   string `json:"user_error,omitempty"` // mensaje legible para el operador
	Corrective  string `json:"corrective_action,omitempty"`
	Warning     string `json:"warning,omitempty"` // discrepancia de montos o conciliación pendiente
}

// CancelacionRequest body de POST /api/facturas/:invoice_id/cancelar.
type CancelacionRequest struct {
	Motivo           string `json:"motivo"` // 01-04
	SubstitutionUUID string `json:"substitution_uuid,omitempty"`
}

// CancelacionResponse resultado de la cancelación.
type CancelacionResponse struct {
	Success   bool   `json:"success"`
	FFM       string `json:"ffm,omitempty"`
	StatusFFM string `json:"status_ffm,omitempty"`
	StatusSI  string `json:"status_si,omitempty"`
	UUID      string `json:"uuid,omitempty"`
	Message   string `json:"message"`
}

// SustitucionResponse resultado de crear el borrador de sustitución.
type SustitucionResponse struct {
	Success          bool   `json:"success"`
	NewInvoiceID     string `json:"new_invoice_id,omitempty"`
	SubstitutionUUID string `json:"substitution_uuid,omitempty"` // UUID del comprobante sustituido
	Message          string `json:"message"`
}

// RefacturacionValidationResponse veredicto del guard de re-facturación.
type RefacturacionValidationResponse struct {
	Valid   bool     `json:"valid"`
	Diffs   []string `json:"diffs,omitempty"` // campos con diferencia
	Message string   `json:"message"`
}

// EstadoFiscalResponse estado derivado del documento fiscal.
type EstadoFiscalResponse struct {
	FFM             string `json:"ffm"`
	SalesInvoice    string `json:"sales_invoice"`
	FiscalStatus    string `json:"fiscal_status"`
	UUID            string `json:"uuid,omitempty"`
	Serie           string `json:"serie,omitempty"`
	Folio           string `json:"folio,omitempty"`
	FechaTimbrado   string `json:"fecha_timbrado,omitempty"`
	ValidationColor string `json:"validation_color"`
}

// ResponseLogDTO renglón del Response Log para la API.
type ResponseLogDTO struct {
	ID            string `json:"id"`
	OperationType string `json:"operation_type"`
	Success       bool   `json:"success"`
	StatusCode    int    `json:"status_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// CreateFacturaFiscalRequest body de POST /api/facturas (crear documento fiscal).
type CreateFacturaFiscalRequest struct {
	SalesInvoiceID   string `json:"sales_invoice_id"`
	CustomerID       string `json:"customer_id,omitempty"` // override fiscal; default el de la factura
	CFDIUse          string `json:"cfdi_use"`
	PaymentMethodSAT string `json:"payment_method_sat"` // PUE | PPD
	FormaPago        string `json:"forma_pago,omitempty"`
}

// FacturaFiscalResponse documento fiscal en respuestas.
type FacturaFiscalResponse struct {
	ID               string          `json:"id"`
	SalesInvoice     string          `json:"sales_invoice"`
	CustomerID       string          `json:"customer_id"`
	FiscalStatus     string          `json:"fiscal_status"`
	CFDIUse          string          `json:"cfdi_use"`
	PaymentMethodSAT string          `json:"payment_method_sat"`
	UUID             string          `json:"uuid,omitempty"`
	Serie            string          `json:"serie,omitempty"`
	Folio            string          `json:"folio,omitempty"`
	TotalFiscal      decimal.Decimal `json:"total_fiscal"`
	ValidationColor  string          `json:"validation_color"`
}
