package entity

import "time"

// Estados de la tarea de recuperación.
const (
	RecoveryPending   = "pending"
	RecoveryRunning   = "running"
	RecoveryCompleted = "completed"
	RecoveryExhausted = "exhausted" // agotó MaxAttempts sin éxito
)

// Prioridades.
const (
	RecoveryPriorityHigh   = "high"
	RecoveryPriorityNormal = "normal"
)

// RecoveryTask contrato explícito "el PAC tuvo éxito, el estado local no":
// cuando la fase 3 de una cancelación falla después de que el PAC ya confirmó,
// se agenda reparación automática en lugar de perder la inconsistencia.
type RecoveryTask struct {
	ID                  string
	FacturaFiscalMexico string
	TaskType            string // ej. "sync_cancellation"
	Priority            string
	Attempts            int
	MaxAttempts         int
	LastError           string
	Payload             string // JSON con lo necesario para reintentar (uuid, motivo, razón)
	Status              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CanRetry indica si la tarea aún tiene intentos disponibles.
func (t *RecoveryTask) CanRetry() bool {
	return t.Status != RecoveryCompleted && t.Attempts < t.MaxAttempts
}

// RegisterAttempt consume un intento y registra el error; marca exhausted al agotar.
func (t *RecoveryTask) RegisterAttempt(errMsg string) {
	t.Attempts++
	t.LastError = errMsg
	if t.Attempts >= t.MaxAttempts {
		t.Status = RecoveryExhausted
	}
	t.UpdatedAt = time.Now()
}
