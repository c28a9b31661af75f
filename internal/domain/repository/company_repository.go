package repository

import (
	"context"

	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
)

// CompanyRepository puerto del emisor fiscal.
type CompanyRepository interface {
	Create(ctx context.Context, c *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	Update(ctx context.Context, c *entity.Company) error
}
