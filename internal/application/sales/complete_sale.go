package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/farmacia-pos/internal/application/dto"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// CompleteSaleUseCase completa una venta multi-línea como un único evento
// indivisible: resuelve (o crea) el cliente por nombre, crea la cabecera,
// las líneas y descuenta el stock de cada medicamento en la misma transacción.
// Cualquier fallo en una línea hace rollback de toda la venta.
type CompleteSaleUseCase struct {
	txRunner   SaleTxRunner
	ledger     LedgerService
	saleRepo   repository.SaleRepository
	clientRepo repository.ClientRepository
}

// NewCompleteSaleUseCase construye el caso de uso.
func NewCompleteSaleUseCase(
	txRunner SaleTxRunner,
	ledger LedgerService,
	saleRepo repository.SaleRepository,
	clientRepo repository.ClientRepository,
) *CompleteSaleUseCase {
	return &CompleteSaleUseCase{
		txRunner:   txRunner,
		ledger:     ledger,
		saleRepo:   saleRepo,
		clientRepo: clientRepo,
	}
}

func validPaymentMethod(m string) bool {
	return m == entity.PaymentMethodCash || m == entity.PaymentMethodCard || m == entity.PaymentMethodTransfer
}

// CompleteSale valida la petición y ejecuta la venta en una sola transacción.
// Una línea que dejaría el stock negativo rechaza la venta completa con
// ErrInsufficientStock (más estricto que las salidas manuales, que se
// flooran en cero).
func (uc *CompleteSaleUseCase) CompleteSale(ctx context.Context, userID string, in dto.CompleteSaleRequest) (*dto.SaleResponse, error) {
	// Validación completa antes de cualquier escritura
	if in.ClientName == "" || len(in.Items) == 0 || !validPaymentMethod(in.PaymentMethod) {
		return nil, domain.ErrInvalidInput
	}
	if in.TotalAmount.LessThan(decimal.Zero) || in.AmountPaid.LessThan(decimal.Zero) || in.ChangeDue.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	for _, item := range in.Items {
		if item.MedicationID == "" || item.Quantity <= 0 || item.PriceAtSale.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
	}

	now := time.Now()
	saleID := uuid.New().String()
	var sale *entity.Sale
	var items []*entity.SaleItem
	var clientID string

	err := uc.txRunner.RunSale(ctx, func(
		movRepo repository.StockMovementRepository,
		medRepo repository.MedicationRepository,
		clientRepo repository.ClientRepository,
		saleRepo repository.SaleRepository,
	) error {
		// El runner puede reintentar el callback ante conflicto: empezar de cero.
		items = items[:0]

		// 1) Resolver o crear el cliente por nombre
		client, err := clientRepo.GetByName(in.ClientName)
		if err != nil {
			return err
		}
		if client == nil {
			client = &entity.Client{
				ID:        uuid.New().String(),
				Name:      in.ClientName,
				CreatedAt: now,
			}
			if err := clientRepo.Create(client); err != nil {
				return err
			}
		}
		clientID = client.ID

		// 2) Cabecera de la venta
		sale = &entity.Sale{
			ID:            saleID,
			ClientID:      client.ID,
			UserID:        userID,
			TotalAmount:   in.TotalAmount,
			AmountPaid:    in.AmountPaid,
			ChangeDue:     in.ChangeDue,
			PaymentMethod: in.PaymentMethod,
			CreatedAt:     now,
		}
		if err := saleRepo.Create(sale); err != nil {
			return err
		}

		// 3) Por cada línea: descuento de stock vía ledger + línea de venta.
		// Si el ledger retorna error (ej: sin stock), rollback de todo.
		for _, item := range in.Items {
			if err := uc.ledger.RegisterSaleExitInTx(
				movRepo, medRepo,
				item.MedicationID, userID,
				item.Quantity,
				now,
				saleID,
			); err != nil {
				return err
			}
			saleItem := &entity.SaleItem{
				ID:           uuid.New().String(),
				SaleID:       saleID,
				MedicationID: item.MedicationID,
				Quantity:     item.Quantity,
				PriceAtSale:  item.PriceAtSale,
			}
			if err := saleRepo.CreateItem(saleItem); err != nil {
				return err
			}
			items = append(items, saleItem)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toSaleResponse(sale, in.ClientName, clientID, items), nil
}

// GetSale obtiene una venta por ID con sus líneas.
func (uc *CompleteSaleUseCase) GetSale(ctx context.Context, id string) (*dto.SaleResponse, error) {
	sale, err := uc.saleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	items, err := uc.saleRepo.GetItemsBySaleID(id)
	if err != nil {
		return nil, err
	}
	clientName := ""
	if client, _ := uc.clientRepo.GetByID(sale.ClientID); client != nil {
		clientName = client.Name
	}
	return toSaleResponse(sale, clientName, sale.ClientID, items), nil
}

func toSaleResponse(s *entity.Sale, clientName, clientID string, items []*entity.SaleItem) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:            s.ID,
		ClientID:      clientID,
		ClientName:    clientName,
		UserID:        s.UserID,
		TotalAmount:   s.TotalAmount,
		AmountPaid:    s.AmountPaid,
		ChangeDue:     s.ChangeDue,
		PaymentMethod: s.PaymentMethod,
		CreatedAt:     s.CreatedAt,
		Items:         make([]dto.SaleItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.SaleItemResponse{
			ID:           it.ID,
			MedicationID: it.MedicationID,
			Quantity:     it.Quantity,
			PriceAtSale:  it.PriceAtSale,
		})
	}
	return resp
}
