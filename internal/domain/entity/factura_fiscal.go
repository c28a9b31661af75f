package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

// Estados fiscales del documento (ciclo de vida CFDI).
// "Solicitud Cancelación" es estado de primera clase: cubre la ventana entre
// la solicitud aceptada por el PAC y la confirmación del SAT.
const (
	StatusPendiente            = "Pendiente"
	StatusTimbrada             = "Timbrada"
	StatusSolicitudCancelacion = "Solicitud Cancelación"
	StatusCancelada            = "Cancelada" // terminal
	StatusError                = "Error"     // recuperable
)

// validTransitions tabla de aristas válidas del estado fiscal.
// Escrituras internas re-afirmantes usan ForceSetStatus, no esta tabla.
var validTransitions = map[string][]string{
	"":                         {StatusPendiente},
	StatusPendiente:            {StatusTimbrada, StatusCancelada, StatusError},
	StatusTimbrada:             {StatusSolicitudCancelacion, StatusCancelada, StatusError},
	StatusSolicitudCancelacion: {StatusCancelada, StatusTimbrada},
	StatusCancelada:            {}, // terminal
	StatusError:                {StatusPendiente, StatusTimbrada},
}

// Colores de validación para la UI (semáforo RFC + domicilio).
const (
	ValidationGreen  = "green"
	ValidationYellow = "yellow"
	ValidationRed    = "red"
)

// FacturaFiscalMexico es la entidad central: la vida fiscal de una factura de
// venta. Su estado es una vista materializada sobre el Response Log (ver
// DeriveFiscalStatus); el documento nunca es fuente de verdad por sí mismo.
type FacturaFiscalMexico struct {
	ID           string
	SalesInvoice string // 1:1 con la factura origen; única entre documentos no cancelados
	CustomerID   string // puede diferir del cliente de la factura (override fiscal)
	CompanyID    string

	FiscalStatus      string // ver constantes Status*
	CFDIUse           string // catálogo c_UsoCFDI (ej. "G03")
	PaymentMethodSAT  string // "PUE" | "PPD"
	FormaPagoTimbrado string // c_FormaPago usada al timbrar ("01", "03", "99", ...)

	UUID        string // folio fiscal emitido por el PAC al timbrar
	FacturapiID string // id interno del PAC; obligatorio para cancelar
	Serie       string
	Folio       string
	TotalFiscal decimal.Decimal // total según el PAC

	// Snapshot monetario capturado al crear el documento, para el chequeo de
	// discrepancia contra el total devuelto por el PAC.
	SITotalAntesIVA  decimal.Decimal
	SIIVA            decimal.Decimal
	SIOtrosImpuestos decimal.Decimal
	SITotalNeto      decimal.Decimal

	CancellationReason string // opción exacta del Select de motivos
	CancellationDate   *time.Time
	FechaTimbrado      *time.Time

	// Sustitución CFDI: UUID del comprobante que este documento reemplaza.
	SubstitutionSourceUUID string
	// AckPending: el acuse de cancelación del PAC aún no se descarga.
	AckPending bool

	Docstatus int // estado ERP de la factura fiscal: 0 draft, 1 submitted, 2 cancelled

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive indica si el documento cuenta contra el invariante de unicidad
// (un solo documento fiscal no cancelado por factura).
func (f *FacturaFiscalMexico) IsActive() bool {
	return f.FiscalStatus != StatusCancelada
}

// CanTransition consulta la tabla sin mutar el documento.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo es la transición externa con guard: valida contra la tabla y
// rechaza escrituras al mismo estado. Falla nombrando estado viejo y nuevo.
func (f *FacturaFiscalMexico) TransitionTo(newStatus string) error {
	if newStatus == f.FiscalStatus {
		return fmt.Errorf("%w: el documento ya está en %q", domain.ErrInvalidTransition, newStatus)
	}
	if !CanTransition(f.FiscalStatus, newStatus) {
		return fmt.Errorf("%w: %q → %q", domain.ErrInvalidTransition, f.FiscalStatus, newStatus)
	}
	f.FiscalStatus = newStatus
	f.UpdatedAt = time.Now()
	return nil
}

// ForceSetStatus es la escritura interna re-afirmante: exenta de la tabla por
// diseño. La usan la derivación desde logs y el side-channel del Response Log,
// que pueden reescribir el mismo estado sin que eso sea un error.
func (f *FacturaFiscalMexico) ForceSetStatus(status string) {
	f.FiscalStatus = status
	f.UpdatedAt = time.Now()
}

// ValidatePaymentConsistency reglas SAT método/forma de pago:
// PPD exige forma "99"; PUE exige cualquier forma excepto "99".
func (f *FacturaFiscalMexico) ValidatePaymentConsistency() error {
	switch f.PaymentMethodSAT {
	case sat.PaymentMethodPPD:
		if f.FormaPagoTimbrado != "" && f.FormaPagoTimbrado != sat.PaymentFormPorDefinir {
			return fmt.Errorf("%w: método PPD exige forma de pago 99, se recibió %q",
				domain.ErrInvalidInput, f.FormaPagoTimbrado)
		}
	case sat.PaymentMethodPUE:
		if f.FormaPagoTimbrado == sat.PaymentFormPorDefinir {
			return fmt.Errorf("%w: método PUE no admite forma de pago 99", domain.ErrInvalidInput)
		}
	case "":
		return fmt.Errorf("%w: método de pago SAT requerido (PUE|PPD)", domain.ErrInvalidInput)
	default:
		return fmt.Errorf("%w: método de pago SAT desconocido %q", domain.ErrInvalidInput, f.PaymentMethodSAT)
	}
	return nil
}

// ResolveFormaPago forma de pago efectiva para el payload del PAC:
// el campo explícito si existe; si no, PPD implica "99" por default.
func (f *FacturaFiscalMexico) ResolveFormaPago() string {
	if f.FormaPagoTimbrado != "" {
		return f.FormaPagoTimbrado
	}
	if f.PaymentMethodSAT == sat.PaymentMethodPPD {
		return sat.PaymentFormPorDefinir
	}
	return ""
}

// RequirePACInvoiceID guard previo a cualquier cancelación.
func (f *FacturaFiscalMexico) RequirePACInvoiceID() error {
	if f.FacturapiID == "" {
		return domain.ErrMissingPACInvoiceID
	}
	return nil
}

// ValidationColor semáforo para la UI a partir del estado de validación del
// RFC y la completitud del domicilio del receptor.
func ValidationColor(rfcValid, addressComplete bool) string {
	switch {
	case rfcValid && addressComplete:
		return ValidationGreen
	case rfcValid || addressComplete:
		return ValidationYellow
	default:
		return ValidationRed
	}
}
