package timbrado

import (
	"context"

	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/facturapi"
)

// PACClient puerto hacia el proveedor de timbrado. La implementación real es
// infrastructure/facturapi.Client; los tests usan un fake.
type PACClient interface {
	CreateInvoice(ctx context.Context, payload map[string]any) (*facturapi.StampResult, error)
	CancelInvoice(ctx context.Context, pacInvoiceID, motive, substitutionUUID string) (*facturapi.CancelResult, error)
	DownloadPDF(ctx context.Context, pacInvoiceID string) ([]byte, error)
	DownloadXML(ctx context.Context, pacInvoiceID string) ([]byte, error)
	DownloadCancellationReceipt(ctx context.Context, pacInvoiceID string) ([]byte, error)
}

// DocumentLocker serializa cascadas concurrentes sobre el mismo documento
// fiscal. release debe ser seguro de llamar exactamente una vez y liberar en
// todos los caminos de salida.
type DocumentLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// FiscalTxRunner ejecuta la reconciliación local (fase 3) en una transacción.
// El Response Log nunca entra aquí: se escribe antes y por fuera.
type FiscalTxRunner interface {
	Run(ctx context.Context, fn func(
		ffmRepo repository.FacturaFiscalRepository,
		siRepo repository.SalesInvoiceRepository,
		eventRepo repository.FiscalEventRepository,
		recoveryRepo repository.RecoveryTaskRepository,
	) error) error
}

// FileStore almacena adjuntos del documento fiscal (PDF/XML timbrado, acuse).
type FileStore interface {
	Attach(ctx context.Context, ffmID, filename string, data []byte) error
}
