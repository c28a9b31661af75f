package entity

import (
	"fmt"
	"time"

	"github.com/tu-usuario/facturacion-mx/internal/domain"
)

// Estados del evento fiscal (trail ligero de transiciones no-PAC).
const (
	EventStatusPending = "pending"
	EventStatusSuccess = "success" // terminal
	EventStatusFailed  = "failed"
	EventStatusRetry   = "retry"
)

// Tipos de evento registrados.
const (
	EventDocumentCreated = "document_created"
	EventStatusChanged   = "status_changed"
	EventCascadeStarted  = "cascade_started"
	EventRecoveryQueued  = "recovery_queued"
)

// eventTransitions máquina de estados del evento:
// pending→{success,failed,retry}, failed→{retry,success}, retry→{success,failed}.
var eventTransitions = map[string][]string{
	EventStatusPending: {EventStatusSuccess, EventStatusFailed, EventStatusRetry},
	EventStatusFailed:  {EventStatusRetry, EventStatusSuccess},
	EventStatusRetry:   {EventStatusSuccess, EventStatusFailed},
	EventStatusSuccess: {}, // terminal
}

// FiscalEventMX registro de event-sourcing secundario para observabilidad de
// transiciones del ciclo de vida, independiente de la comunicación con el PAC.
type FiscalEventMX struct {
	ID               string
	ReferenceDoctype string // referencia polimórfica, típicamente "Factura Fiscal Mexico"
	ReferenceName    string
	EventType        string
	Status           string
	EventData        string // JSON
	ExecutionTime    time.Duration
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewFiscalEvent crea el evento en estado pending.
func NewFiscalEvent(refDoctype, refName, eventType, eventData string) *FiscalEventMX {
	now := time.Now()
	return &FiscalEventMX{
		ReferenceDoctype: refDoctype,
		ReferenceName:    refName,
		EventType:        eventType,
		Status:           EventStatusPending,
		EventData:        eventData,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Transition transición externa con guard. Rechaza escrituras al mismo estado;
// los helpers internos MarkSuccess/MarkFailed son la vía re-afirmante, con
// operaciones propias en lugar de flags de bypass.
func (e *FiscalEventMX) Transition(newStatus string) error {
	if newStatus == e.Status {
		return fmt.Errorf("%w: evento ya está en %q", domain.ErrInvalidTransition, newStatus)
	}
	for _, allowed := range eventTransitions[e.Status] {
		if allowed == newStatus {
			e.Status = newStatus
			e.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: evento %q → %q", domain.ErrInvalidTransition, e.Status, newStatus)
}

// MarkSuccess escritura interna: fija success directamente, registrando la
// duración de la operación. Exenta del guard por diseño.
func (e *FiscalEventMX) MarkSuccess(execution time.Duration) {
	e.Status = EventStatusSuccess
	e.ExecutionTime = execution
	e.UpdatedAt = time.Now()
}

// MarkFailed escritura interna: fija failed con el mensaje de error.
func (e *FiscalEventMX) MarkFailed(errMsg string) {
	e.Status = EventStatusFailed
	e.ErrorMessage = errMsg
	e.UpdatedAt = time.Now()
}
