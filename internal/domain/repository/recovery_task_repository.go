package repository

import (
	"context"

	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
)

// RecoveryTaskRepository puerto de tareas de reparación automática.
type RecoveryTaskRepository interface {
	Create(ctx context.Context, task *entity.RecoveryTask) error
	Update(ctx context.Context, task *entity.RecoveryTask) error
	ListPending(ctx context.Context, limit int) ([]*entity.RecoveryTask, error)
}
