package repository

import "github.com/jhoicas/farmacia-pos/internal/domain/entity"

// MedicationRepository define el puerto de persistencia para Medication.
// Quantity solo se modifica vía UpdateQuantity dentro de una transacción del ledger;
// Update cubre únicamente los campos de catálogo.
type MedicationRepository interface {
	Create(m *entity.Medication) error
	GetByID(id string) (*entity.Medication, error)
	GetByName(name string) (*entity.Medication, error)
	List(limit, offset int) ([]*entity.Medication, error)
	Update(m *entity.Medication) error
	// GetForUpdate bloquea la fila del medicamento (SELECT FOR UPDATE) para
	// serializar lecturas-escrituras concurrentes de stock sobre el mismo medicamento.
	GetForUpdate(id string) (*entity.Medication, error)
	UpdateQuantity(id string, quantity int) error
}
