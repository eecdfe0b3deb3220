package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de pago aceptados en caja.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
)

// Sale es la cabecera de una venta completada en el punto de venta.
type Sale struct {
	ID            string
	ClientID      string
	UserID        string // vendedor que completó la venta
	TotalAmount   decimal.Decimal
	AmountPaid    decimal.Decimal
	ChangeDue     decimal.Decimal
	PaymentMethod string
	CreatedAt     time.Time
}

// SaleItem es una línea de venta: medicamento, cantidad vendida y precio al momento de la venta.
type SaleItem struct {
	ID           string
	SaleID       string
	MedicationID string
	Quantity     int
	PriceAtSale  decimal.Decimal
}
