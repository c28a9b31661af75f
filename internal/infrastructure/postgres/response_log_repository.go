package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
)

var _ repository.ResponseLogRepository = (*ResponseLogRepo)(nil)

// ResponseLogRepo implementación del audit trail append-only. No hay Update ni
// Delete: la inmutabilidad del log es parte del contrato, no un accidente.
// En la tabla la respalda REVOKE UPDATE, DELETE y un trigger que rechaza ambos.
type ResponseLogRepo struct {
	q Querier
}

// NewResponseLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewResponseLogRepository(q Querier) *ResponseLogRepo {
	return &ResponseLogRepo{q: q}
}

// Create inserta el renglón tras validar sus invariantes.
func (r *ResponseLogRepo) Create(ctx context.Context, log *entity.PACResponseLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	query := `
		INSERT INTO pac_response_logs (
			id, factura_fiscal_mx, operation_type, success, status_code,
			error_message, facturapi_response, request_payload, ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.q.Exec(ctx, query,
		log.ID, log.FacturaFiscalMexico, log.OperationType, log.Success, log.StatusCode,
		nullIfEmpty(log.ErrorMessage), nullIfEmpty(log.FacturapiResponse), nullIfEmpty(log.RequestPayload),
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert response log: %w", err)
	}
	return nil
}

// ListByFiscalDocument devuelve los renglones en orden cronológico ascendente.
func (r *ResponseLogRepo) ListByFiscalDocument(ctx context.Context, ffmID string) ([]*entity.PACResponseLog, error) {
	query := `
		SELECT id, factura_fiscal_mx, operation_type, success, status_code,
		       COALESCE(error_message, ''), COALESCE(facturapi_response, ''), COALESCE(request_payload, ''), ts
		FROM pac_response_logs
		WHERE factura_fiscal_mx = $1
		ORDER BY ts ASC, id ASC`
	rows, err := r.q.Query(ctx, query, ffmID)
	if err != nil {
		return nil, fmt.Errorf("list response logs: %w", err)
	}
	defer rows.Close()

	var list []*entity.PACResponseLog
	for rows.Next() {
		var l entity.PACResponseLog
		if err := rows.Scan(
			&l.ID, &l.FacturaFiscalMexico, &l.OperationType, &l.Success, &l.StatusCode,
			&l.ErrorMessage, &l.FacturapiResponse, &l.RequestPayload, &l.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan response log: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// LatestStampingRequest devuelve el último Timbrado exitoso con su
// request_payload (snapshot para el guard de re-facturación), o nil.
func (r *ResponseLogRepo) LatestStampingRequest(ctx context.Context, ffmID string) (*entity.PACResponseLog, error) {
	query := `
		SELECT id, factura_fiscal_mx, operation_type, success, status_code,
		       COALESCE(error_message, ''), COALESCE(facturapi_response, ''), COALESCE(request_payload, ''), ts
		FROM pac_response_logs
		WHERE factura_fiscal_mx = $1 AND operation_type = $2 AND success = true
		ORDER BY ts DESC, id DESC
		LIMIT 1`
	var l entity.PACResponseLog
	err := r.q.QueryRow(ctx, query, ffmID, entity.OperationTimbrado).Scan(
		&l.ID, &l.FacturaFiscalMexico, &l.OperationType, &l.Success, &l.StatusCode,
		&l.ErrorMessage, &l.FacturapiResponse, &l.RequestPayload, &l.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest stamping request: %w", err)
	}
	return &l, nil
}
