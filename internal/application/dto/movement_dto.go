package dto

import "time"

// MovementItemRequest línea de una entrada en lote (recepción de varios SKUs).
type MovementItemRequest struct {
	MedicationID string `json:"medication_id"`
	Quantity     int    `json:"quantity"`
	Reason       string `json:"reason,omitempty"`
}

// RegisterMovementRequest body para POST /api/inventory/movements.
// ENTRY usa Items (lote); EXIT y CORRECTION usan MedicationID + Quantity.
// Para CORRECTION, Quantity se interpreta como stock objetivo ABSOLUTO, no delta.
type RegisterMovementRequest struct {
	Type         string                `json:"type"`
	MedicationID string                `json:"medication_id,omitempty"`
	Quantity     int                   `json:"quantity,omitempty"`
	Reason       string                `json:"reason,omitempty"`
	Items        []MovementItemRequest `json:"items,omitempty"`
}

// BatchItemResult resultado por línea de una entrada en lote: aplicada o saltada con motivo.
type BatchItemResult struct {
	MedicationID string `json:"medication_id"`
	Status       string `json:"status"` // applied | skipped
	Reason       string `json:"reason,omitempty"`
}

// BatchEntryResponse resultado de una entrada en lote.
type BatchEntryResponse struct {
	Applied int               `json:"applied"`
	Skipped int               `json:"skipped"`
	Items   []BatchItemResult `json:"items"`
}

// MovementResponse un movimiento del historial, enriquecido con nombres.
type MovementResponse struct {
	ID             string    `json:"id"`
	MedicationID   string    `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	Reason         string    `json:"reason,omitempty"`
	PreviousStock  int       `json:"previous_stock"`
	NewStock       int       `json:"new_stock"`
	CreatedAt      time.Time `json:"created_at"`
}

// MovementHistoryResponse historial plano (sin agrupar), más recientes primero.
type MovementHistoryResponse struct {
	Total     int                `json:"total"`
	Movements []MovementResponse `json:"movements"`
}

// MovementGroupResponse un bucket (año, mes) del historial agrupado.
type MovementGroupResponse struct {
	Year      int                `json:"year"`
	Month     int                `json:"month"`
	Count     int                `json:"count"`
	Movements []MovementResponse `json:"movements"`
}

// GroupedHistoryResponse historial agrupado por mes calendario,
// ordenado por año y mes descendentes.
type GroupedHistoryResponse struct {
	Groups []MovementGroupResponse `json:"groups"`
}
