package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/farmacia-pos/internal/application/ledger"
	"github.com/jhoicas/farmacia-pos/internal/application/sales"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

// Ensure TxRunner implements ledger.TxRunner and sales.SaleTxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)
var _ sales.SaleTxRunner = (*TxRunner)(nil)

// Intentos máximos ante fallo de serialización o deadlock antes de
// devolver domain.ErrConflict.
const maxTxAttempts = 3

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL, con
// reintento acotado cuando el conflicto entre escritores concurrentes es
// detectado por el motor (SQLSTATE 40001/40P01). El callback debe ser
// re-ejecutable: en cada intento recibe repositorios atados a una tx nueva.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción con los repos del ledger, ejecuta fn y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	medRepo repository.MedicationRepository,
) error) error {
	return r.withRetry(ctx, func(tx pgx.Tx) error {
		return fn(NewStockMovementRepository(tx), NewMedicationRepository(tx))
	})
}

// RunSale inicia una transacción con los repos del ledger más cliente y venta (para CompleteSale).
func (r *TxRunner) RunSale(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	medRepo repository.MedicationRepository,
	clientRepo repository.ClientRepository,
	saleRepo repository.SaleRepository,
) error) error {
	return r.withRetry(ctx, func(tx pgx.Tx) error {
		return fn(
			NewStockMovementRepository(tx),
			NewMedicationRepository(tx),
			NewClientRepository(tx),
			NewSaleRepository(tx),
		)
	})
}

func (r *TxRunner) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !isRetryableTxError(err) {
			return err
		}
	}
	return domain.ErrConflict
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
