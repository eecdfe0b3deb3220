package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleItemRequest línea de venta: medicamento, cantidad y precio al momento de la venta.
type SaleItemRequest struct {
	MedicationID string          `json:"medication_id"`
	Quantity     int             `json:"quantity"`
	PriceAtSale  decimal.Decimal `json:"price_at_sale"`
}

// CompleteSaleRequest body para POST /api/sales.
type CompleteSaleRequest struct {
	ClientName    string            `json:"client_name"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"`
	ChangeDue     decimal.Decimal   `json:"change_due"`
	PaymentMethod string            `json:"payment_method"`
	Items         []SaleItemRequest `json:"items"`
}

// SaleItemResponse línea de venta persistida.
type SaleItemResponse struct {
	ID           string          `json:"id"`
	MedicationID string          `json:"medication_id"`
	Quantity     int             `json:"quantity"`
	PriceAtSale  decimal.Decimal `json:"price_at_sale"`
}

// SaleResponse venta completada con sus líneas.
type SaleResponse struct {
	ID            string             `json:"id"`
	ClientID      string             `json:"client_id"`
	ClientName    string             `json:"client_name"`
	UserID        string             `json:"user_id"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	AmountPaid    decimal.Decimal    `json:"amount_paid"`
	ChangeDue     decimal.Decimal    `json:"change_due"`
	PaymentMethod string             `json:"payment_method"`
	CreatedAt     time.Time          `json:"created_at"`
	Items         []SaleItemResponse `json:"items"`
}
