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

var _ repository.SalesInvoiceRepository = (*SalesInvoiceRepo)(nil)

// SalesInvoiceRepo implementación del almacén de facturas de venta.
type SalesInvoiceRepo struct {
	q Querier
}

// NewSalesInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSalesInvoiceRepository(q Querier) *SalesInvoiceRepo {
	return &SalesInvoiceRepo{q: q}
}

// Create persiste la cabecera de la factura de venta.
func (r *SalesInvoiceRepo) Create(ctx context.Context, inv *entity.SalesInvoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	query := `
		INSERT INTO sales_invoices (
			id, company_id, customer_id, currency, exchange_rate,
			subtotal, total_iva, other_taxes, grand_total, docstatus,
			factura_fiscal_mx, substitution_source_uuid, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.CustomerID, inv.Currency, inv.ExchangeRate,
		inv.Subtotal, inv.TotalIVA, inv.OtherTaxes, inv.GrandTotal, inv.Docstatus,
		nullIfEmpty(inv.FacturaFiscalMX), nullIfEmpty(inv.SubstitutionSourceUUID),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sales invoice: %w", err)
	}
	return nil
}

// CreateItem persiste una línea de la factura.
func (r *SalesInvoiceRepo) CreateItem(ctx context.Context, item *entity.SalesInvoiceItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO sales_invoice_items (
			id, invoice_id, product_key, description, uom,
			quantity, unit_price, discount, tax_rate, amount
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.InvoiceID, nullIfEmpty(item.ProductKey), item.Description, item.UOM,
		item.Quantity, item.UnitPrice, item.Discount, item.TaxRate, item.Amount,
	)
	if err != nil {
		return fmt.Errorf("insert sales invoice item: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera de la factura.
func (r *SalesInvoiceRepo) GetByID(ctx context.Context, id string) (*entity.SalesInvoice, error) {
	query := `
		SELECT id, company_id, customer_id, currency, exchange_rate,
		       subtotal, total_iva, other_taxes, grand_total, docstatus,
		       COALESCE(factura_fiscal_mx, ''), COALESCE(substitution_source_uuid, ''),
		       created_at, updated_at
		FROM sales_invoices WHERE id = $1`
	var inv entity.SalesInvoice
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.Currency, &inv.ExchangeRate,
		&inv.Subtotal, &inv.TotalIVA, &inv.OtherTaxes, &inv.GrandTotal, &inv.Docstatus,
		&inv.FacturaFiscalMX, &inv.SubstitutionSourceUUID,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: factura de venta %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get sales invoice: %w", err)
	}
	return &inv, nil
}

// GetItems obtiene las líneas de la factura en orden de inserción.
func (r *SalesInvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.SalesInvoiceItem, error) {
	query := `
		SELECT id, invoice_id, COALESCE(product_key, ''), description, uom,
		       quantity, unit_price, discount, tax_rate, amount
		FROM sales_invoice_items WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list sales invoice items: %w", err)
	}
	defer rows.Close()

	var list []*entity.SalesInvoiceItem
	for rows.Next() {
		var it entity.SalesInvoiceItem
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.ProductKey, &it.Description, &it.UOM,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.TaxRate, &it.Amount,
		); err != nil {
			return nil, fmt.Errorf("scan sales invoice item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// Update actualiza la cabecera.
func (r *SalesInvoiceRepo) Update(ctx context.Context, inv *entity.SalesInvoice) error {
	inv.UpdatedAt = time.Now()
	query := `
		UPDATE sales_invoices SET
			currency                 = $2,
			exchange_rate            = $3,
			subtotal                 = $4,
			total_iva                = $5,
			other_taxes              = $6,
			grand_total              = $7,
			docstatus                = $8,
			factura_fiscal_mx        = $9,
			substitution_source_uuid = $10,
			updated_at               = $11
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.Currency, inv.ExchangeRate,
		inv.Subtotal, inv.TotalIVA, inv.OtherTaxes, inv.GrandTotal, inv.Docstatus,
		nullIfEmpty(inv.FacturaFiscalMX), nullIfEmpty(inv.SubstitutionSourceUUID),
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update sales invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura de venta %s", domain.ErrNotFound, inv.ID)
	}
	return nil
}

// SetDocstatus cancela o re-somete la factura en el sentido ERP.
func (r *SalesInvoiceRepo) SetDocstatus(ctx context.Context, id string, docstatus int) error {
	query := `UPDATE sales_invoices SET docstatus = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, docstatus)
	if err != nil {
		return fmt.Errorf("set docstatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura de venta %s", domain.ErrNotFound, id)
	}
	return nil
}

// ClearFiscalLink rompe el lado factura→documento del vínculo cruzado.
func (r *SalesInvoiceRepo) ClearFiscalLink(ctx context.Context, id string) error {
	query := `UPDATE sales_invoices SET factura_fiscal_mx = NULL, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clear fiscal link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura de venta %s", domain.ErrNotFound, id)
	}
	return nil
}
