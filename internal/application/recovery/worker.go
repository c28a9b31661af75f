// Package recovery procesa las tareas "el PAC tuvo éxito, lo local no" que el
// orquestador agenda cuando la fase 3 de una cancelación falla. El worker corre
// en background y reaplica el estado local desde el payload de la tarea; nunca
// vuelve a llamar al PAC, esa operación ya quedó consumada.
package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
	"github.com/tu-usuario/facturacion-mx/pkg/logger"
)

// TaskSyncCancellation sincroniza una cancelación confirmada por el PAC cuya
// actualización local falló.
const TaskSyncCancellation = "sync_cancellation"

// Worker drena tareas de recuperación pendientes a intervalos fijos.
type Worker struct {
	recoveryRepo repository.RecoveryTaskRepository
	ffmRepo      repository.FacturaFiscalRepository
	eventRepo    repository.FiscalEventRepository
	interval     time.Duration
	batchSize    int
	log          *logger.Logger
}

// NewWorker construye el worker; interval <= 0 usa 1 minuto.
func NewWorker(
	recoveryRepo repository.RecoveryTaskRepository,
	ffmRepo repository.FacturaFiscalRepository,
	eventRepo repository.FiscalEventRepository,
	interval time.Duration,
	log *logger.Logger,
) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		recoveryRepo: recoveryRepo,
		ffmRepo:      ffmRepo,
		eventRepo:    eventRepo,
		interval:     interval,
		batchSize:    10,
		log:          log,
	}
}

// Run procesa en loop hasta que el contexto se cancele.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce drena un lote de tareas pendientes.
func (w *Worker) ProcessOnce(ctx context.Context) {
	tasks, err := w.recoveryRepo.ListPending(ctx, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("no se pudieron listar las recovery tasks")
		return
	}
	for _, task := range tasks {
		w.processTask(ctx, task)
	}
}

func (w *Worker) processTask(ctx context.Context, task *entity.RecoveryTask) {
	if !task.CanRetry() {
		if task.Status == entity.RecoveryPending {
			task.Status = entity.RecoveryExhausted
			if err := w.recoveryRepo.Update(ctx, task); err != nil {
				w.log.Error().Err(err).Str("task", task.ID).Msg("no se pudo marcar la tarea como exhausted")
			}
		}
		return
	}

	task.Status = entity.RecoveryRunning
	if err := w.recoveryRepo.Update(ctx, task); err != nil {
		w.log.Error().Err(err).Str("task", task.ID).Msg("no se pudo marcar la tarea como running")
		return
	}

	var repairErr error
	switch task.TaskType {
	case TaskSyncCancellation:
		repairErr = w.syncCancellation(ctx, task)
	default:
		repairErr = fmt.Errorf("recovery: tipo de tarea desconocido %q", task.TaskType)
	}

	if repairErr != nil {
		task.RegisterAttempt(repairErr.Error())
		if task.Status != entity.RecoveryExhausted {
			task.Status = entity.RecoveryPending
		}
		w.log.Warn().Err(repairErr).Str("task", task.ID).Int("attempts", task.Attempts).
			Str("status", task.Status).Msg("intento de reparación falló")
	} else {
		task.Status = entity.RecoveryCompleted
		task.UpdatedAt = time.Now()
		w.log.Info().Str("task", task.ID).Str("ffm", task.FacturaFiscalMexico).
			Msg("inconsistencia reparada")
	}
	if err := w.recoveryRepo.Update(ctx, task); err != nil {
		w.log.Error().Err(err).Str("task", task.ID).Msg("no se pudo persistir el resultado de la tarea")
	}
}

// syncCancellation reaplica la cancelación local con los datos que el
// orquestador congeló en el payload. Si otro actor ya dejó el documento en
// Cancelada la tarea se considera cumplida.
func (w *Worker) syncCancellation(ctx context.Context, task *entity.RecoveryTask) error {
	var payload struct {
		UUID   string `json:"uuid"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return fmt.Errorf("recovery: payload ilegible: %w", err)
	}

	ffm, err := w.ffmRepo.GetByID(ctx, task.FacturaFiscalMexico)
	if err != nil {
		return err
	}
	if ffm.FiscalStatus == entity.StatusCancelada {
		return nil
	}

	now := time.Now()
	ffm.ForceSetStatus(entity.StatusCancelada)
	ffm.CancellationReason = payload.Reason
	ffm.CancellationDate = &now
	if err := w.ffmRepo.Update(ctx, ffm); err != nil {
		return err
	}

	event := entity.NewFiscalEvent("Factura Fiscal Mexico", ffm.ID, entity.EventStatusChanged,
		fmt.Sprintf(`{"to":%q,"via":"recovery","uuid":%q}`, entity.StatusCancelada, payload.UUID))
	event.MarkSuccess(0)
	if err := w.eventRepo.Create(ctx, event); err != nil {
		w.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("no se pudo registrar el evento de reparación")
	}
	return nil
}
