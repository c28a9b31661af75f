package repository

import (
	"context"

	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
)

// FacturaFiscalRepository puerto de persistencia del documento fiscal.
type FacturaFiscalRepository interface {
	Create(ctx context.Context, ffm *entity.FacturaFiscalMexico) error
	GetByID(ctx context.Context, id string) (*entity.FacturaFiscalMexico, error)
	// GetActiveBySalesInvoice devuelve el documento fiscal NO cancelado de la
	// factura, o nil si no existe (invariante: a lo más uno).
	GetActiveBySalesInvoice(ctx context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error)
	// GetStampedBySalesInvoice devuelve el documento Timbrada de la factura,
	// cancelado-en-ERP o no (invariante de doble timbrado).
	GetStampedBySalesInvoice(ctx context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error)
	// GetByUUID resuelve por folio fiscal (cascada de sustitución).
	GetByUUID(ctx context.Context, uuid string) (*entity.FacturaFiscalMexico, error)
	// ListBySalesInvoice devuelve todos los documentos de la factura, incluidos
	// los cancelados, más reciente primero (guard de re-facturación).
	ListBySalesInvoice(ctx context.Context, salesInvoiceID string) ([]*entity.FacturaFiscalMexico, error)
	Update(ctx context.Context, ffm *entity.FacturaFiscalMexico) error
	// UpdateStatus escritura mínima de solo fm_fiscal_status (side-channel del
	// Response Log, independiente del orquestador).
	UpdateStatus(ctx context.Context, id, status string) error
	// ClearSalesInvoiceLink rompe el lado documento→factura del vínculo antes
	// de un cancel a nivel documento (cascadas de sustitución).
	ClearSalesInvoiceLink(ctx context.Context, id string) error
}
