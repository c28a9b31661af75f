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

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación del receptor fiscal sobre PostgreSQL.
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// Create persiste el receptor.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	query := `
		INSERT INTO customers (
			id, company_id, name, rfc, tax_regime, email,
			street, ext_number, colonia, city, state, zip_code, country,
			rfc_valid, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.Name, c.RFC, c.TaxRegime, nullIfEmpty(c.Email),
		nullIfEmpty(c.Street), nullIfEmpty(c.ExtNumber), nullIfEmpty(c.Colonia),
		nullIfEmpty(c.City), nullIfEmpty(c.State), nullIfEmpty(c.ZipCode), c.Country,
		c.RFCValid, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: RFC %s", domain.ErrDuplicate, c.RFC)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID obtiene el receptor por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `
		SELECT id, company_id, name, rfc, tax_regime, COALESCE(email, ''),
		       COALESCE(street, ''), COALESCE(ext_number, ''), COALESCE(colonia, ''),
		       COALESCE(city, ''), COALESCE(state, ''), COALESCE(zip_code, ''), country,
		       rfc_valid, created_at, updated_at
		FROM customers WHERE id = $1`
	var c entity.Customer
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.RFC, &c.TaxRegime, &c.Email,
		&c.Street, &c.ExtNumber, &c.Colonia,
		&c.City, &c.State, &c.ZipCode, &c.Country,
		&c.RFCValid, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// Update actualiza los datos fiscales del receptor.
func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	c.UpdatedAt = time.Now()
	query := `
		UPDATE customers SET
			name = $2, rfc = $3, tax_regime = $4, email = $5,
			street = $6, ext_number = $7, colonia = $8, city = $9, state = $10,
			zip_code = $11, country = $12, rfc_valid = $13, updated_at = $14
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.RFC, c.TaxRegime, nullIfEmpty(c.Email),
		nullIfEmpty(c.Street), nullIfEmpty(c.ExtNumber), nullIfEmpty(c.Colonia),
		nullIfEmpty(c.City), nullIfEmpty(c.State), nullIfEmpty(c.ZipCode), c.Country,
		c.RFCValid, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: cliente %s", domain.ErrNotFound, c.ID)
	}
	return nil
}
