package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
)

// Errores del ciclo fiscal. Los guards del documento y del orquestador los
// envuelven con fmt.Errorf("%w: ...") para añadir detalle.
var (
	// ErrInvalidTransition transición de estado fiscal fuera de la tabla.
	ErrInvalidTransition = errors.New("transición de estado fiscal inválida")
	// ErrDuplicateActiveDocument ya existe un documento fiscal activo (no cancelado) para la factura.
	ErrDuplicateActiveDocument = errors.New("ya existe un documento fiscal activo para la factura")
	// ErrDuplicateStamped ya existe un documento Timbrada para la factura (doble timbrado).
	ErrDuplicateStamped = errors.New("ya existe un documento timbrado para la factura")
	// ErrMissingPACInvoiceID se intentó cancelar sin facturapi_id.
	ErrMissingPACInvoiceID = errors.New("el documento no tiene facturapi_id; no se puede cancelar en el PAC")
	// ErrNotStamped la operación exige un documento en estado Timbrada.
	ErrNotStamped = errors.New("el documento fiscal no está timbrado")
	// ErrInvoiceNotSubmitted la factura de origen no está submitted en el ERP.
	ErrInvoiceNotSubmitted = errors.New("la factura de venta no está submitted")
	// ErrImmutableLog un registro del Response Log no se modifica después de creado.
	ErrImmutableLog = errors.New("el response log es append-only; no se permiten mutaciones")
)
