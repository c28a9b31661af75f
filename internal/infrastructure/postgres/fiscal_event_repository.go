package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
)

var _ repository.FiscalEventRepository = (*FiscalEventRepo)(nil)

// FiscalEventRepo implementación del trail secundario de eventos.
type FiscalEventRepo struct {
	q Querier
}

// NewFiscalEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalEventRepository(q Querier) *FiscalEventRepo {
	return &FiscalEventRepo{q: q}
}

// Create persiste el evento.
func (r *FiscalEventRepo) Create(ctx context.Context, event *entity.FiscalEventMX) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fiscal_events_mx (
			id, reference_doctype, reference_name, event_type, status,
			event_data, execution_ms, error_message, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.q.Exec(ctx, query,
		event.ID, event.ReferenceDoctype, event.ReferenceName, event.EventType, event.Status,
		nullIfEmpty(event.EventData), event.ExecutionTime.Milliseconds(), nullIfEmpty(event.ErrorMessage),
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fiscal event: %w", err)
	}
	return nil
}

// Update actualiza status, duración y error del evento.
func (r *FiscalEventRepo) Update(ctx context.Context, event *entity.FiscalEventMX) error {
	query := `
		UPDATE fiscal_events_mx
		SET status = $2, execution_ms = $3, error_message = $4, updated_at = $5
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		event.ID, event.Status, event.ExecutionTime.Milliseconds(), nullIfEmpty(event.ErrorMessage), event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update fiscal event: %w", err)
	}
	return nil
}

// ListByReference obtiene los eventos de un documento, más reciente primero.
func (r *FiscalEventRepo) ListByReference(ctx context.Context, refDoctype, refName string) ([]*entity.FiscalEventMX, error) {
	query := `
		SELECT id, reference_doctype, reference_name, event_type, status,
		       COALESCE(event_data, ''), execution_ms, COALESCE(error_message, ''),
		       created_at, updated_at
		FROM fiscal_events_mx
		WHERE reference_doctype = $1 AND reference_name = $2
		ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, refDoctype, refName)
	if err != nil {
		return nil, fmt.Errorf("list fiscal events: %w", err)
	}
	defer rows.Close()

	var list []*entity.FiscalEventMX
	for rows.Next() {
		var e entity.FiscalEventMX
		var execMs int64
		if err := rows.Scan(
			&e.ID, &e.ReferenceDoctype, &e.ReferenceName, &e.EventType, &e.Status,
			&e.EventData, &execMs, &e.ErrorMessage,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan fiscal event: %w", err)
		}
		e.ExecutionTime = msToDuration(execMs)
		list = append(list, &e)
	}
	return list, rows.Err()
}
