package sales

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

// SaleTxRunner ejecuta una función dentro de una transacción que incluye los
// repositorios del ledger más cliente y venta (para CompleteSale).
type SaleTxRunner interface {
	RunSale(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
		clientRepo repository.ClientRepository,
		saleRepo repository.SaleRepository,
	) error) error
}

// LedgerService integra la venta con el motor de movimientos.
// RegisterSaleExitInTx descuenta stock usando los repositorios del caller
// (misma transacción). Si retorna error (ej: ErrInsufficientStock), el caller
// debe hacer rollback de toda la venta.
type LedgerService interface {
	RegisterSaleExitInTx(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
		medicationID, userID string,
		quantity int,
		now time.Time,
		saleID string,
	) error
}
