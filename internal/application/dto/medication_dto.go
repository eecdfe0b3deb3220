package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateMedicationRequest body para POST /api/medications.
// InitialQuantity alimenta el stock inicial vía el ledger (movimiento ENTRY).
type CreateMedicationRequest struct {
	Name            string          `json:"name"`
	InitialQuantity int             `json:"initial_quantity"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	ExpirationDate  time.Time       `json:"expiration_date"`
}

// UpdateMedicationRequest body para PUT /api/medications/:id.
// No incluye cantidad: el stock solo cambia vía movimientos.
type UpdateMedicationRequest struct {
	Name           *string          `json:"name,omitempty"`
	SalePrice      *decimal.Decimal `json:"sale_price,omitempty"`
	PurchasePrice  *decimal.Decimal `json:"purchase_price,omitempty"`
	ExpirationDate *time.Time       `json:"expiration_date,omitempty"`
}

// MedicationResponse representación HTTP de un medicamento.
type MedicationResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	ExpirationDate time.Time       `json:"expiration_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MedicationListResponse listado paginado.
type MedicationListResponse struct {
	Total       int                  `json:"total"`
	Medications []MedicationResponse `json:"medications"`
}
