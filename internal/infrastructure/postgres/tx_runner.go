package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// La fase 3 del timbrado y de la cancelación (reconciliación local) corre
// completa dentro de una tx: o todos los efectos locales aterrizan o ninguno.
// El Response Log queda deliberadamente FUERA: se escribe antes, con el pool,
// para que sobreviva a un rollback de la reconciliación.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ffmRepo repository.FacturaFiscalRepository,
	siRepo repository.SalesInvoiceRepository,
	eventRepo repository.FiscalEventRepository,
	recoveryRepo repository.RecoveryTaskRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ffmRepo := NewFacturaFiscalRepository(tx)
	siRepo := NewSalesInvoiceRepository(tx)
	eventRepo := NewFiscalEventRepository(tx)
	recoveryRepo := NewRecoveryTaskRepository(tx)

	if err := fn(ffmRepo, siRepo, eventRepo, recoveryRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
