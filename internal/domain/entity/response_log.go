package entity

import (
	"fmt"
	"time"

	"github.com/tu-usuario/facturacion-mx/internal/domain"
)

// Tipos de operación registrados en el Response Log. Solo interacciones
// reales con el PAC; los errores de validación previos nunca se registran aquí.
const (
	OperationTimbrado                = "Timbrado"
	OperationSolicitudCancelacion    = "Solicitud Cancelación"
	OperationConfirmacionCancelacion = "Confirmación Cancelación"
)

// recognizedOperations operaciones que disparan el side-channel de estado.
var recognizedOperations = map[string]string{
	OperationTimbrado:                StatusTimbrada,
	OperationConfirmacionCancelacion: StatusCancelada,
}

// PACResponseLog es un renglón del audit trail append-only: qué dijo el PAC,
// crudo y sin sanitizar. Es la única fuente de verdad sobre la interacción
// externa; una vez insertado jamás se muta ni se sobreescribe.
type PACResponseLog struct {
	ID                  string
	FacturaFiscalMexico string // FK al documento fiscal
	OperationType       string // ver constantes Operation*
	Success             bool
	StatusCode          int
	ErrorMessage        string
	FacturapiResponse   string // JSON crudo del PAC (o texto plano de fallback)
	RequestPayload      string // JSON del payload enviado
	Timestamp           time.Time
}

// Validate invariantes del renglón antes de insertar:
// éxito exige respuesta cruda no vacía; fallo exige mensaje de error.
func (l *PACResponseLog) Validate() error {
	if l.FacturaFiscalMexico == "" {
		return fmt.Errorf("%w: response log sin documento fiscal", domain.ErrInvalidInput)
	}
	switch l.OperationType {
	case OperationTimbrado, OperationSolicitudCancelacion, OperationConfirmacionCancelacion:
	default:
		return fmt.Errorf("%w: operation_type desconocido %q", domain.ErrInvalidInput, l.OperationType)
	}
	if l.Success && l.FacturapiResponse == "" {
		return fmt.Errorf("%w: log exitoso sin facturapi_response", domain.ErrInvalidInput)
	}
	if !l.Success && l.ErrorMessage == "" {
		return fmt.Errorf("%w: log fallido sin error_message", domain.ErrInvalidInput)
	}
	return nil
}

// StatusForOperation devuelve el estado fiscal que implica una operación
// exitosa reconocida, o "" si la operación no determina estado por sí sola.
func StatusForOperation(operationType string) string {
	return recognizedOperations[operationType]
}

// DeriveFiscalStatus deriva el estado fiscal re-reproduciendo el Response Log.
// Es una función pura e idempotente: el estado vivo puede mantenerse
// incrementalmente, pero siempre debe ser reconstruible con esta regla.
//
// Reglas, en orden de precedencia:
//  1. Último éxito entre {Timbrado, Confirmación Cancelación} manda:
//     Timbrado → Timbrada, Confirmación Cancelación → Cancelada.
//  2. Una "Solicitud Cancelación" exitosa SIN confirmación posterior fuerza el
//     estado intermedio Solicitud Cancelación aunque la regla 1 diga Timbrada.
//  3. Un fallo dentro de la ventana recentErrWindow sin éxito posterior fuerza Error.
//  4. Sin logs concluyentes: Pendiente.
//
// logs debe venir en orden cronológico ascendente.
func DeriveFiscalStatus(logs []*PACResponseLog, now time.Time, recentErrWindow time.Duration) string {
	status := StatusPendiente

	var lastDecisiveSuccess time.Time
	var pendingCancelRequest bool

	for _, l := range logs {
		if !l.Success {
			continue
		}
		switch l.OperationType {
		case OperationTimbrado:
			status = StatusTimbrada
			lastDecisiveSuccess = l.Timestamp
			pendingCancelRequest = false
		case OperationConfirmacionCancelacion:
			status = StatusCancelada
			lastDecisiveSuccess = l.Timestamp
			pendingCancelRequest = false
		case OperationSolicitudCancelacion:
			if status == StatusTimbrada {
				pendingCancelRequest = true
			}
		}
	}

	if pendingCancelRequest {
		return StatusSolicitudCancelacion
	}

	// Fallo reciente sin éxito posterior fuerza Error.
	for i := len(logs) - 1; i >= 0; i-- {
		l := logs[i]
		if l.Success {
			break // el éxito más reciente es posterior a cualquier fallo restante
		}
		if now.Sub(l.Timestamp) <= recentErrWindow && l.Timestamp.After(lastDecisiveSuccess) {
			return StatusError
		}
		break // solo interesa el último intento
	}

	return status
}
