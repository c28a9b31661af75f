package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
)

var _ repository.FacturaFiscalRepository = (*FacturaFiscalRepo)(nil)

// FacturaFiscalRepo implementación sobre PostgreSQL (usable con pool o tx).
// El invariante "a lo más un documento activo por factura" lo respalda un
// índice único parcial: (sales_invoice) WHERE fiscal_status <> 'Cancelada'.
type FacturaFiscalRepo struct {
	q Querier
}

// NewFacturaFiscalRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFacturaFiscalRepository(q Querier) *FacturaFiscalRepo {
	return &FacturaFiscalRepo{q: q}
}

const ffmColumns = `
	id, sales_invoice, customer_id, company_id,
	fiscal_status, cfdi_use, payment_method_sat, forma_pago_timbrado,
	uuid, facturapi_id, serie, folio, total_fiscal,
	si_total_antes_iva, si_iva, si_otros_impuestos, si_total_neto,
	cancellation_reason, cancellation_date, fecha_timbrado,
	substitution_source_uuid, ack_pending, docstatus,
	created_at, updated_at`

// Create persiste el documento fiscal. La violación del índice único parcial
// se traduce a ErrDuplicateActiveDocument.
func (r *FacturaFiscalRepo) Create(ctx context.Context, ffm *entity.FacturaFiscalMexico) error {
	if ffm.ID == "" {
		ffm.ID = uuid.New().String()
	}
	now := time.Now()
	if ffm.CreatedAt.IsZero() {
		ffm.CreatedAt = now
	}
	ffm.UpdatedAt = now

	query := `
		INSERT INTO facturas_fiscales_mx (
			id, sales_invoice, customer_id, company_id,
			fiscal_status, cfdi_use, payment_method_sat, forma_pago_timbrado,
			uuid, facturapi_id, serie, folio, total_fiscal,
			si_total_antes_iva, si_iva, si_otros_impuestos, si_total_neto,
			cancellation_reason, cancellation_date, fecha_timbrado,
			substitution_source_uuid, ack_pending, docstatus,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`
	_, err := r.q.Exec(ctx, query,
		ffm.ID, nullIfEmpty(ffm.SalesInvoice), ffm.CustomerID, ffm.CompanyID,
		ffm.FiscalStatus, ffm.CFDIUse, ffm.PaymentMethodSAT, nullIfEmpty(ffm.FormaPagoTimbrado),
		nullIfEmpty(ffm.UUID), nullIfEmpty(ffm.FacturapiID), nullIfEmpty(ffm.Serie), nullIfEmpty(ffm.Folio), ffm.TotalFiscal,
		ffm.SITotalAntesIVA, ffm.SIIVA, ffm.SIOtrosImpuestos, ffm.SITotalNeto,
		nullIfEmpty(ffm.CancellationReason), ffm.CancellationDate, ffm.FechaTimbrado,
		nullIfEmpty(ffm.SubstitutionSourceUUID), ffm.AckPending, ffm.Docstatus,
		ffm.CreatedAt, ffm.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicateActiveDocument, ffm.SalesInvoice)
		}
		return fmt.Errorf("insert factura fiscal: %w", err)
	}
	return nil
}

// GetByID obtiene el documento fiscal por ID.
func (r *FacturaFiscalRepo) GetByID(ctx context.Context, id string) (*entity.FacturaFiscalMexico, error) {
	query := `SELECT ` + ffmColumns + ` FROM facturas_fiscales_mx WHERE id = $1`
	ffm, err := r.scanOne(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: factura fiscal %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get factura fiscal: %w", err)
	}
	return ffm, nil
}

// GetActiveBySalesInvoice devuelve el documento no cancelado de la factura, o
// nil si no existe. El índice único parcial garantiza a lo más un renglón.
func (r *FacturaFiscalRepo) GetActiveBySalesInvoice(ctx context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error) {
	query := `SELECT ` + ffmColumns + `
		FROM facturas_fiscales_mx
		WHERE sales_invoice = $1 AND fiscal_status <> $2`
	ffm, err := r.scanOne(r.q.QueryRow(ctx, query, salesInvoiceID, entity.StatusCancelada))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get factura fiscal activa: %w", err)
	}
	return ffm, nil
}

// GetStampedBySalesInvoice devuelve el documento Timbrada de la factura (el
// guard de doble timbrado mira aquí, sin importar el docstatus ERP), o nil.
func (r *FacturaFiscalRepo) GetStampedBySalesInvoice(ctx context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error) {
	query := `SELECT ` + ffmColumns + `
		FROM facturas_fiscales_mx
		WHERE sales_invoice = $1 AND fiscal_status = $2
		ORDER BY created_at DESC
		LIMIT 1`
	ffm, err := r.scanOne(r.q.QueryRow(ctx, query, salesInvoiceID, entity.StatusTimbrada))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get factura fiscal timbrada: %w", err)
	}
	return ffm, nil
}

// GetByUUID resuelve el documento por folio fiscal (cascadas de sustitución).
func (r *FacturaFiscalRepo) GetByUUID(ctx context.Context, folioFiscal string) (*entity.FacturaFiscalMexico, error) {
	query := `SELECT ` + ffmColumns + ` FROM facturas_fiscales_mx WHERE uuid = $1`
	ffm, err := r.scanOne(r.q.QueryRow(ctx, query, folioFiscal))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: UUID %s", domain.ErrNotFound, folioFiscal)
		}
		return nil, fmt.Errorf("get factura fiscal por uuid: %w", err)
	}
	return ffm, nil
}

// ListBySalesInvoice devuelve todos los documentos de la factura, cancelados
// incluidos, más reciente primero.
func (r *FacturaFiscalRepo) ListBySalesInvoice(ctx context.Context, salesInvoiceID string) ([]*entity.FacturaFiscalMexico, error) {
	query := `SELECT ` + ffmColumns + `
		FROM facturas_fiscales_mx
		WHERE sales_invoice = $1
		ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, salesInvoiceID)
	if err != nil {
		return nil, fmt.Errorf("list facturas fiscales: %w", err)
	}
	defer rows.Close()

	var list []*entity.FacturaFiscalMexico
	for rows.Next() {
		ffm, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan factura fiscal: %w", err)
		}
		list = append(list, ffm)
	}
	return list, rows.Err()
}

// Update actualiza todos los campos mutables del documento.
func (r *FacturaFiscalRepo) Update(ctx context.Context, ffm *entity.FacturaFiscalMexico) error {
	ffm.UpdatedAt = time.Now()
	query := `
		UPDATE facturas_fiscales_mx SET
			sales_invoice            = $2,
			fiscal_status            = $3,
			cfdi_use                 = $4,
			payment_method_sat       = $5,
			forma_pago_timbrado      = $6,
			uuid                     = COALESCE($7, uuid),
			facturapi_id             = COALESCE($8, facturapi_id),
			serie                    = COALESCE($9, serie),
			folio                    = COALESCE($10, folio),
			total_fiscal             = $11,
			cancellation_reason      = $12,
			cancellation_date        = $13,
			fecha_timbrado           = $14,
			substitution_source_uuid = $15,
			ack_pending              = $16,
			docstatus                = $17,
			updated_at               = $18
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		ffm.ID, nullIfEmpty(ffm.SalesInvoice),
		ffm.FiscalStatus, ffm.CFDIUse, ffm.PaymentMethodSAT, nullIfEmpty(ffm.FormaPagoTimbrado),
		nullIfEmpty(ffm.UUID), nullIfEmpty(ffm.FacturapiID), nullIfEmpty(ffm.Serie), nullIfEmpty(ffm.Folio),
		ffm.TotalFiscal,
		nullIfEmpty(ffm.CancellationReason), ffm.CancellationDate, ffm.FechaTimbrado,
		nullIfEmpty(ffm.SubstitutionSourceUUID), ffm.AckPending, ffm.Docstatus,
		ffm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update factura fiscal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura fiscal %s", domain.ErrNotFound, ffm.ID)
	}
	return nil
}

// UpdateStatus escritura mínima de solo fiscal_status (side-channel del
// Response Log). No toca ningún otro campo.
func (r *FacturaFiscalRepo) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE facturas_fiscales_mx SET fiscal_status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update fiscal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura fiscal %s", domain.ErrNotFound, id)
	}
	return nil
}

// ClearSalesInvoiceLink rompe el lado documento→factura del vínculo cruzado.
func (r *FacturaFiscalRepo) ClearSalesInvoiceLink(ctx context.Context, id string) error {
	query := `UPDATE facturas_fiscales_mx SET sales_invoice = NULL, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clear sales invoice link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura fiscal %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *FacturaFiscalRepo) scanOne(row pgx.Row) (*entity.FacturaFiscalMexico, error) {
	var ffm entity.FacturaFiscalMexico
	var salesInvoice, formaPago, folioUUID, facturapiID, serie, folio, cancelReason, subUUID *string
	err := row.Scan(
		&ffm.ID, &salesInvoice, &ffm.CustomerID, &ffm.CompanyID,
		&ffm.FiscalStatus, &ffm.CFDIUse, &ffm.PaymentMethodSAT, &formaPago,
		&folioUUID, &facturapiID, &serie, &folio, &ffm.TotalFiscal,
		&ffm.SITotalAntesIVA, &ffm.SIIVA, &ffm.SIOtrosImpuestos, &ffm.SITotalNeto,
		&cancelReason, &ffm.CancellationDate, &ffm.FechaTimbrado,
		&subUUID, &ffm.AckPending, &ffm.Docstatus,
		&ffm.CreatedAt, &ffm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ffm.SalesInvoice = derefStr(salesInvoice)
	ffm.FormaPagoTimbrado = derefStr(formaPago)
	ffm.UUID = derefStr(folioUUID)
	ffm.FacturapiID = derefStr(facturapiID)
	ffm.Serie = derefStr(serie)
	ffm.Folio = derefStr(folio)
	ffm.CancellationReason = derefStr(cancelReason)
	ffm.SubstitutionSourceUUID = derefStr(subUUID)
	return &ffm, nil
}
