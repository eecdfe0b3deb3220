package ledger

import (
	"context"

	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios
// atados a esa tx. Garantiza atomicidad entre la actualización de cantidad y el
// registro del movimiento; ante conflicto de concurrencia reintenta un número
// acotado de veces antes de devolver domain.ErrConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
	) error) error
}
