package repository

import "github.com/jhoicas/farmacia-pos/internal/domain/entity"

// MovementFilter filtros para consultar el historial de movimientos.
// Limit <= 0 significa sin límite (lo usa el modo agrupado).
type MovementFilter struct {
	MedicationID string
	Type         string
	Limit        int
}

// StockMovementRepository define el puerto de persistencia para el historial de stock.
// Los movimientos son inmutables: se crean una vez y nunca se actualizan ni borran.
type StockMovementRepository interface {
	Create(m *entity.StockMovement) error
	GetByID(id string) (*entity.StockMovement, error)
	// List devuelve movimientos según filtro, más recientes primero, enriquecidos
	// con el nombre del medicamento y del usuario que los registró.
	List(f MovementFilter) ([]*entity.MovementWithNames, error)
}
