package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
)

var _ repository.RecoveryTaskRepository = (*RecoveryTaskRepo)(nil)

// RecoveryTaskRepo implementación de tareas de reparación automática.
type RecoveryTaskRepo struct {
	q Querier
}

// NewRecoveryTaskRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRecoveryTaskRepository(q Querier) *RecoveryTaskRepo {
	return &RecoveryTaskRepo{q: q}
}

// Create persiste la tarea.
func (r *RecoveryTaskRepo) Create(ctx context.Context, task *entity.RecoveryTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	query := `
		INSERT INTO recovery_tasks (
			id, factura_fiscal_mx, task_type, priority, attempts, max_attempts,
			last_error, payload, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.q.Exec(ctx, query,
		task.ID, task.FacturaFiscalMexico, task.TaskType, task.Priority, task.Attempts, task.MaxAttempts,
		nullIfEmpty(task.LastError), nullIfEmpty(task.Payload), task.Status,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recovery task: %w", err)
	}
	return nil
}

// Update registra el resultado de un intento.
func (r *RecoveryTaskRepo) Update(ctx context.Context, task *entity.RecoveryTask) error {
	query := `
		UPDATE recovery_tasks
		SET attempts = $2, last_error = $3, status = $4, updated_at = $5
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		task.ID, task.Attempts, nullIfEmpty(task.LastError), task.Status, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update recovery task: %w", err)
	}
	return nil
}

// ListPending obtiene tareas pendientes, prioridad alta primero y luego las
// más antiguas. FOR UPDATE SKIP LOCKED permite varios workers sin pisarse.
func (r *RecoveryTaskRepo) ListPending(ctx context.Context, limit int) ([]*entity.RecoveryTask, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, factura_fiscal_mx, task_type, priority, attempts, max_attempts,
		       COALESCE(last_error, ''), COALESCE(payload, ''), status, created_at, updated_at
		FROM recovery_tasks
		WHERE status = $1
		ORDER BY CASE priority WHEN 'high' THEN 0 ELSE 1 END, created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`
	rows, err := r.q.Query(ctx, query, entity.RecoveryPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list recovery tasks: %w", err)
	}
	defer rows.Close()

	var list []*entity.RecoveryTask
	for rows.Next() {
		var t entity.RecoveryTask
		if err := rows.Scan(
			&t.ID, &t.FacturaFiscalMexico, &t.TaskType, &t.Priority, &t.Attempts, &t.MaxAttempts,
			&t.LastError, &t.Payload, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recovery task: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
