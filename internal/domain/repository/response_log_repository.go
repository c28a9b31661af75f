package repository

import (
	"context"

	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
)

// ResponseLogRepository puerto del audit trail append-only.
// Deliberadamente no expone Update ni Delete.
type ResponseLogRepository interface {
	Create(ctx context.Context, log *entity.PACResponseLog) error
	// ListByFiscalDocument devuelve los renglones en orden cronológico
	// ascendente (insumo de DeriveFiscalStatus).
	ListByFiscalDocument(ctx context.Context, ffmID string) ([]*entity.PACResponseLog, error)
	// LatestStampingRequest devuelve el request_payload del último Timbrado
	// exitoso (snapshot para el guard de re-facturación), o nil si no hay.
	LatestStampingRequest(ctx context.Context, ffmID string) (*entity.PACResponseLog, error)
}
