package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medication representa un medicamento del catálogo de la farmacia.
// Quantity es el stock actual; se modifica ÚNICAMENTE a través del motor
// de movimientos (ledger), nunca por update directo del catálogo.
type Medication struct {
	ID             string
	Name           string
	Quantity       int // stock actual, nunca negativo
	SalePrice      decimal.Decimal
	PurchasePrice  decimal.Decimal
	ExpirationDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
