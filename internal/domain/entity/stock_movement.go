package entity

import "time"

// Tipos de movimiento de stock.
const (
	MovementTypeENTRY      = "ENTRY"      // entrada (recepción de mercancía)
	MovementTypeEXIT       = "EXIT"       // salida manual
	MovementTypeCORRECTION = "CORRECTION" // ajuste absoluto por conteo físico
)

// IsValidMovementType valida el tipo contra los valores conocidos.
func IsValidMovementType(t string) bool {
	return t == MovementTypeENTRY || t == MovementTypeEXIT || t == MovementTypeCORRECTION
}

// StockMovement es un registro inmutable del historial de stock de un medicamento.
// Quantity es siempre la magnitud aplicada (>= 0); la dirección se deduce del tipo
// y de comparar PreviousStock con NewStock. Las correcciones nunca editan historial:
// siempre se crea un registro nuevo.
//
// Invariantes por tipo:
//   - ENTRY:      NewStock == PreviousStock + Quantity
//   - EXIT:       NewStock == max(0, PreviousStock - Quantity)
//   - CORRECTION: NewStock es el valor absoluto solicitado; Quantity == |NewStock - PreviousStock|
type StockMovement struct {
	ID            string
	MedicationID  string
	UserID        string
	Type          string // ENTRY, EXIT, CORRECTION
	Quantity      int    // magnitud aplicada, nunca negativa
	Reason        string
	PreviousStock int
	NewStock      int
	CreatedAt     time.Time
}

// MovementWithNames movimiento enriquecido con nombres para vistas de historial.
type MovementWithNames struct {
	StockMovement
	MedicationName string
	UserName       string
}
