package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/farmacia-pos/internal/application/dto"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

// Estados por línea de una entrada en lote.
const (
	BatchItemApplied = "applied"
	BatchItemSkipped = "skipped"
)

// LedgerUseCase es la única autoridad para convertir una intención de movimiento
// en un cambio de estado durable: lee el stock actual con bloqueo de fila
// (SELECT FOR UPDATE), calcula el nuevo stock, actualiza la cantidad del
// medicamento y persiste el StockMovement, todo dentro de una transacción.
// La columna quantity del medicamento y el último movimiento siempre coinciden.
type LedgerUseCase struct {
	txRunner TxRunner
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner TxRunner) *LedgerUseCase {
	return &LedgerUseCase{txRunner: txRunner}
}

// EntryInput entrada de stock (recepción de mercancía).
type EntryInput struct {
	MedicationID string
	Quantity     int
	Reason       string
	UserID       string
}

// ExitInput salida manual de stock (no venta).
type ExitInput struct {
	MedicationID string
	Quantity     int
	Reason       string
	UserID       string
}

// CorrectionInput ajuste absoluto de stock tras conteo físico.
// TargetQuantity es el stock final deseado, no un delta.
type CorrectionInput struct {
	MedicationID   string
	TargetQuantity int
	Reason         string
	UserID         string
}

// BatchEntryLine línea de una entrada en lote.
type BatchEntryLine struct {
	MedicationID string
	Quantity     int
	Reason       string
}

// BatchEntryInput entrada en lote (recepción de varios SKUs a la vez).
type BatchEntryInput struct {
	UserID string
	Items  []BatchEntryLine
}

// RecordEntry registra una entrada: n = p + quantity.
func (uc *LedgerUseCase) RecordEntry(ctx context.Context, in EntryInput) error {
	if in.MedicationID == "" || in.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	return uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
	) error {
		return applyEntry(movRepo, medRepo, in.MedicationID, in.Quantity, in.Reason, in.UserID, time.Now())
	})
}

// RecordExit registra una salida manual: n = max(0, p - quantity).
// Si la salida excede el stock disponible, el stock queda en 0 en lugar de
// rechazarse (política deliberadamente tolerante para salidas manuales);
// el movimiento guarda la cantidad solicitada.
func (uc *LedgerUseCase) RecordExit(ctx context.Context, in ExitInput) error {
	if in.MedicationID == "" || in.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	return uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
	) error {
		med, err := medRepo.GetForUpdate(in.MedicationID)
		if err != nil {
			return err
		}
		if med == nil {
			return domain.ErrNotFound
		}
		prev := med.Quantity
		next := prev - in.Quantity
		if next < 0 {
			next = 0
		}
		if err := medRepo.UpdateQuantity(in.MedicationID, next); err != nil {
			return err
		}
		return movRepo.Create(&entity.StockMovement{
			ID:            uuid.New().String(),
			MedicationID:  in.MedicationID,
			UserID:        in.UserID,
			Type:          entity.MovementTypeEXIT,
			Quantity:      in.Quantity,
			Reason:        in.Reason,
			PreviousStock: prev,
			NewStock:      next,
			CreatedAt:     time.Now(),
		})
	})
}

// RecordCorrection fija el stock en un valor absoluto (conciliación de conteo
// físico: merma, vencimiento, corrección de conteo). El movimiento guarda
// quantity = |target - p|; la dirección se recupera comparando los snapshots.
func (uc *LedgerUseCase) RecordCorrection(ctx context.Context, in CorrectionInput) error {
	if in.MedicationID == "" || in.TargetQuantity < 0 {
		return domain.ErrInvalidInput
	}
	return uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
	) error {
		med, err := medRepo.GetForUpdate(in.MedicationID)
		if err != nil {
			return err
		}
		if med == nil {
			return domain.ErrNotFound
		}
		prev := med.Quantity
		next := in.TargetQuantity
		magnitude := next - prev
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if err := medRepo.UpdateQuantity(in.MedicationID, next); err != nil {
			return err
		}
		return movRepo.Create(&entity.StockMovement{
			ID:            uuid.New().String(),
			MedicationID:  in.MedicationID,
			UserID:        in.UserID,
			Type:          entity.MovementTypeCORRECTION,
			Quantity:      magnitude,
			Reason:        in.Reason,
			PreviousStock: prev,
			NewStock:      next,
			CreatedAt:     time.Now(),
		})
	})
}

// RecordBatchEntry aplica una entrada en lote. Las líneas con cantidad no
// positiva o medicamento inexistente se saltan con motivo (política tolerante
// de recepción), no abortan el lote; las líneas aplicadas se confirman como una
// sola unidad: si la persistencia falla a mitad del lote, ninguna sobrevive.
func (uc *LedgerUseCase) RecordBatchEntry(ctx context.Context, in BatchEntryInput) ([]dto.BatchItemResult, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	var results []dto.BatchItemResult
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
	) error {
		// El runner puede reintentar el callback ante conflicto: empezar de cero.
		results = results[:0]
		now := time.Now()
		for _, item := range in.Items {
			if item.MedicationID == "" || item.Quantity <= 0 {
				results = append(results, dto.BatchItemResult{
					MedicationID: item.MedicationID,
					Status:       BatchItemSkipped,
					Reason:       "cantidad no positiva o medicamento sin ID",
				})
				continue
			}
			med, err := medRepo.GetForUpdate(item.MedicationID)
			if err != nil {
				return err
			}
			if med == nil {
				results = append(results, dto.BatchItemResult{
					MedicationID: item.MedicationID,
					Status:       BatchItemSkipped,
					Reason:       "medicamento no encontrado",
				})
				continue
			}
			prev := med.Quantity
			next := prev + item.Quantity
			if err := medRepo.UpdateQuantity(item.MedicationID, next); err != nil {
				return err
			}
			if err := movRepo.Create(&entity.StockMovement{
				ID:            uuid.New().String(),
				MedicationID:  item.MedicationID,
				UserID:        in.UserID,
				Type:          entity.MovementTypeENTRY,
				Quantity:      item.Quantity,
				Reason:        item.Reason,
				PreviousStock: prev,
				NewStock:      next,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
			results = append(results, dto.BatchItemResult{
				MedicationID: item.MedicationID,
				Status:       BatchItemApplied,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// RegisterSaleExitInTx descuenta stock por una línea de venta usando los
// repositorios del caller (misma transacción). A diferencia de RecordExit,
// una venta que dejaría el stock negativo se rechaza con ErrInsufficientStock;
// el caller debe hacer rollback de toda la venta. Emite un movimiento EXIT
// referenciando la venta para que el historial registre también las
// depleciones por venta.
func (uc *LedgerUseCase) RegisterSaleExitInTx(
	movRepo repository.StockMovementRepository,
	medRepo repository.MedicationRepository,
	medicationID, userID string,
	quantity int,
	now time.Time,
	saleID string,
) error {
	if quantity <= 0 {
		return domain.ErrInvalidInput
	}
	med, err := medRepo.GetForUpdate(medicationID)
	if err != nil {
		return err
	}
	if med == nil {
		return domain.ErrNotFound
	}
	if med.Quantity < quantity {
		return domain.ErrInsufficientStock
	}
	next := med.Quantity - quantity
	if err := medRepo.UpdateQuantity(medicationID, next); err != nil {
		return err
	}
	return movRepo.Create(&entity.StockMovement{
		ID:            uuid.New().String(),
		MedicationID:  medicationID,
		UserID:        userID,
		Type:          entity.MovementTypeEXIT,
		Quantity:      quantity,
		Reason:        "venta " + saleID,
		PreviousStock: med.Quantity,
		NewStock:      next,
		CreatedAt:     now,
	})
}

// RecordInitialEntryInTx registra el stock inicial de un medicamento recién
// creado en el catálogo, usando los repositorios del caller (misma transacción).
func (uc *LedgerUseCase) RecordInitialEntryInTx(
	movRepo repository.StockMovementRepository,
	medRepo repository.MedicationRepository,
	medicationID, userID string,
	quantity int,
	now time.Time,
) error {
	if quantity <= 0 {
		return domain.ErrInvalidInput
	}
	return applyEntry(movRepo, medRepo, medicationID, quantity, "stock inicial", userID, now)
}

// applyEntry bloquea la fila del medicamento, suma la cantidad y persiste el movimiento ENTRY.
func applyEntry(
	movRepo repository.StockMovementRepository,
	medRepo repository.MedicationRepository,
	medicationID string,
	quantity int,
	reason, userID string,
	now time.Time,
) error {
	med, err := medRepo.GetForUpdate(medicationID)
	if err != nil {
		return err
	}
	if med == nil {
		return domain.ErrNotFound
	}
	prev := med.Quantity
	next := prev + quantity
	if err := medRepo.UpdateQuantity(medicationID, next); err != nil {
		return err
	}
	return movRepo.Create(&entity.StockMovement{
		ID:            uuid.New().String(),
		MedicationID:  medicationID,
		UserID:        userID,
		Type:          entity.MovementTypeENTRY,
		Quantity:      quantity,
		Reason:        reason,
		PreviousStock: prev,
		NewStock:      next,
		CreatedAt:     now,
	})
}
