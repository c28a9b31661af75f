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

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del emisor fiscal sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// Create persiste el emisor.
func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	query := `
		INSERT INTO companies (
			id, name, rfc, tax_regime, zip_code, email, phone, address,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.RFC, c.TaxRegime, nullIfEmpty(c.ZipCode),
		nullIfEmpty(c.Email), nullIfEmpty(c.Phone), nullIfEmpty(c.Address),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: RFC %s", domain.ErrDuplicate, c.RFC)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID obtiene el emisor por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `
		SELECT id, name, rfc, tax_regime, COALESCE(zip_code, ''),
		       COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
		       created_at, updated_at
		FROM companies WHERE id = $1`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.RFC, &c.TaxRegime, &c.ZipCode,
		&c.Email, &c.Phone, &c.Address,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: empresa %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// Update actualiza los datos fiscales del emisor.
func (r *CompanyRepo) Update(ctx context.Context, c *entity.Company) error {
	c.UpdatedAt = time.Now()
	query := `
		UPDATE companies SET
			name = $2, rfc = $3, tax_regime = $4, zip_code = $5,
			email = $6, phone = $7, address = $8, updated_at = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.RFC, c.TaxRegime, nullIfEmpty(c.ZipCode),
		nullIfEmpty(c.Email), nullIfEmpty(c.Phone), nullIfEmpty(c.Address),
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: empresa %s", domain.ErrNotFound, c.ID)
	}
	return nil
}
