package repository

import (
	"context"

	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
)

// SalesInvoiceRepository puerto del almacén de facturas de venta (colaborador ERP).
type SalesInvoiceRepository interface {
	Create(ctx context.Context, inv *entity.SalesInvoice) error
	CreateItem(ctx context.Context, item *entity.SalesInvoiceItem) error
	GetByID(ctx context.Context, id string) (*entity.SalesInvoice, error)
	GetItems(ctx context.Context, invoiceID string) ([]*entity.SalesInvoiceItem, error)
	Update(ctx context.Context, inv *entity.SalesInvoice) error
	// SetDocstatus cancela o re-somete la factura en el sentido ERP.
	SetDocstatus(ctx context.Context, id string, docstatus int) error
	// ClearFiscalLink rompe el lado factura→documento del vínculo cruzado
	// antes del cancel a nivel documento (cascadas de sustitución).
	ClearFiscalLink(ctx context.Context, id string) error
}

// CustomerRepository puerto del receptor fiscal.
type CustomerRepository interface {
	Create(ctx context.Context, c *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	Update(ctx context.Context, c *entity.Customer) error
}
