package repository

import (
	"context"

	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
)

// FiscalEventRepository puerto del trail secundario de eventos.
type FiscalEventRepository interface {
	Create(ctx context.Context, event *entity.FiscalEventMX) error
	Update(ctx context.Context, event *entity.FiscalEventMX) error
	ListByReference(ctx context.Context, refDoctype, refName string) ([]*entity.FiscalEventMX, error)
}
