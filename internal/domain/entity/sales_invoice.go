package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Docstatus del documento en el sentido ERP.
const (
	DocstatusDraft     = 0
	DocstatusSubmitted = 1
	DocstatusCancelled = 2
)

// SalesInvoice es la factura de venta de origen (colaborador ERP modelado como
// almacén de documentos propio). El vínculo fm_factura_fiscal_mx es solo
// back-reference, no relación de propiedad; ambos lados se limpian antes de un
// cancel a nivel documento durante cascadas de sustitución.
type SalesInvoice struct {
	ID           string
	CompanyID    string
	CustomerID   string
	Currency     string
	ExchangeRate decimal.Decimal
	Subtotal     decimal.Decimal // antes de impuestos
	TotalIVA     decimal.Decimal
	OtherTaxes   decimal.Decimal
	GrandTotal   decimal.Decimal
	Docstatus    int

	// Back-reference al documento fiscal activo (puede estar vacío).
	FacturaFiscalMX string
	// UUID del CFDI que esta factura sustituye (workflow de sustitución).
	SubstitutionSourceUUID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsSubmitted indica si la factura está submitted en el sentido ERP.
func (s *SalesInvoice) IsSubmitted() bool { return s.Docstatus == DocstatusSubmitted }

// SalesInvoiceItem línea de la factura. UOM viaja como string "H87 - Pieza";
// el builder del payload extrae la clave SAT.
type SalesInvoiceItem struct {
	ID          string
	InvoiceID   string
	ProductKey  string // clave SAT c_ClaveProdServ; vacía = DefaultProductKey
	Description string
	UOM         string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal // tasa IVA (0.16)
	Amount      decimal.Decimal
}

// Customer receptor fiscal. RFC y domicilio determinan el semáforo de validación.
type Customer struct {
	ID        string
	CompanyID string
	Name      string // razón social tal como está en la constancia fiscal
	RFC       string
	TaxRegime string // c_RegimenFiscal
	Email     string
	Street    string
	ExtNumber string
	Colonia   string
	City      string
	State     string
	ZipCode   string // CP del domicilio fiscal; obligatorio para CFDI 4.0
	Country   string
	RFCValid  bool // resultado de la última validación de RFC
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCompleteAddress el PAC exige al menos CP del domicilio fiscal del receptor.
func (c *Customer) HasCompleteAddress() bool {
	return c.ZipCode != ""
}
