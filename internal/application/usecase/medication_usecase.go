package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/farmacia-pos/internal/application/dto"
	"github.com/jhoicas/farmacia-pos/internal/application/ledger"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// MedicationUseCase casos de uso CRUD de catálogo. La cantidad en stock se
// maneja exclusivamente vía movimientos: Create registra el stock inicial a
// través del ledger y Update nunca la toca.
type MedicationUseCase struct {
	repo     repository.MedicationRepository
	txRunner ledger.TxRunner
	ledger   *ledger.LedgerUseCase
}

// NewMedicationUseCase construye el caso de uso.
func NewMedicationUseCase(repo repository.MedicationRepository, txRunner ledger.TxRunner, ledgerUC *ledger.LedgerUseCase) *MedicationUseCase {
	return &MedicationUseCase{repo: repo, txRunner: txRunner, ledger: ledgerUC}
}

// Create da de alta un medicamento. Si InitialQuantity > 0, el alta y el
// movimiento ENTRY de stock inicial se confirman en la misma transacción.
func (uc *MedicationUseCase) Create(ctx context.Context, userID string, in dto.CreateMedicationRequest) (*dto.MedicationResponse, error) {
	if in.Name == "" || in.InitialQuantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.SalePrice.LessThan(decimal.Zero) || in.PurchasePrice.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	existing, _ := uc.repo.GetByName(in.Name)
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now()
	med := &entity.Medication{
		ID:             uuid.New().String(),
		Name:           in.Name,
		Quantity:       0, // el stock inicial entra como movimiento ENTRY
		SalePrice:      in.SalePrice,
		PurchasePrice:  in.PurchasePrice,
		ExpirationDate: in.ExpirationDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
	) error {
		if err := medRepo.Create(med); err != nil {
			return err
		}
		if in.InitialQuantity > 0 {
			return uc.ledger.RecordInitialEntryInTx(movRepo, medRepo, med.ID, userID, in.InitialQuantity, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	med.Quantity = in.InitialQuantity
	return toMedicationResponse(med), nil
}

// GetByID obtiene un medicamento por ID.
func (uc *MedicationUseCase) GetByID(ctx context.Context, id string) (*dto.MedicationResponse, error) {
	med, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, domain.ErrNotFound
	}
	return toMedicationResponse(med), nil
}

// List lista el catálogo paginado.
func (uc *MedicationUseCase) List(ctx context.Context, limit, offset int) (*dto.MedicationListResponse, error) {
	meds, err := uc.repo.List(limit, offset)
	if err != nil {
		return nil, err
	}
	out := &dto.MedicationListResponse{
		Total:       len(meds),
		Medications: make([]dto.MedicationResponse, 0, len(meds)),
	}
	for _, m := range meds {
		out.Medications = append(out.Medications, *toMedicationResponse(m))
	}
	return out, nil
}

// Update actualiza campos de catálogo. No permite modificar Quantity
// (se maneja vía movimientos).
func (uc *MedicationUseCase) Update(ctx context.Context, id string, in dto.UpdateMedicationRequest) (*dto.MedicationResponse, error) {
	med, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		med.Name = *in.Name
	}
	if in.SalePrice != nil {
		if in.SalePrice.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		med.SalePrice = *in.SalePrice
	}
	if in.PurchasePrice != nil {
		if in.PurchasePrice.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		med.PurchasePrice = *in.PurchasePrice
	}
	if in.ExpirationDate != nil {
		med.ExpirationDate = *in.ExpirationDate
	}
	med.UpdatedAt = time.Now()
	if err := uc.repo.Update(med); err != nil {
		return nil, err
	}
	return toMedicationResponse(med), nil
}

func toMedicationResponse(m *entity.Medication) *dto.MedicationResponse {
	return &dto.MedicationResponse{
		ID:             m.ID,
		Name:           m.Name,
		Quantity:       m.Quantity,
		SalePrice:      m.SalePrice,
		PurchasePrice:  m.PurchasePrice,
		ExpirationDate: m.ExpirationDate,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
