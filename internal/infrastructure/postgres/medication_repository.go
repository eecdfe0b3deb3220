package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

var _ repository.MedicationRepository = (*MedicationRepo)(nil)

// MedicationRepo implementación de MedicationRepository sobre PostgreSQL (usable con pool o tx).
type MedicationRepo struct {
	q Querier
}

// NewMedicationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMedicationRepository(q Querier) *MedicationRepo {
	return &MedicationRepo{q: q}
}

const medicationColumns = "id, name, quantity, sale_price, purchase_price, expiration_date, created_at, updated_at"

// Create persiste un medicamento nuevo.
func (r *MedicationRepo) Create(m *entity.Medication) error {
	query := `
		INSERT INTO medications (id, name, quantity, sale_price, purchase_price, expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		m.ID, m.Name, m.Quantity, m.SalePrice, m.PurchasePrice, m.ExpirationDate, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

// GetByID obtiene un medicamento por ID.
func (r *MedicationRepo) GetByID(id string) (*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = $1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id), "get medication")
}

// GetByName obtiene un medicamento por nombre exacto (para detectar duplicados de catálogo).
func (r *MedicationRepo) GetByName(name string) (*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE name = $1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, name), "get medication by name")
}

// GetForUpdate obtiene el medicamento y bloquea la fila (SELECT FOR UPDATE) para
// serializar la secuencia leer-calcular-escribir de stock frente a escritores concurrentes.
func (r *MedicationRepo) GetForUpdate(id string) (*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id), "get medication for update")
}

// List lista el catálogo ordenado por nombre.
func (r *MedicationRepo) List(limit, offset int) ([]*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()
	var list []*entity.Medication
	for rows.Next() {
		var m entity.Medication
		if err := rows.Scan(&m.ID, &m.Name, &m.Quantity, &m.SalePrice, &m.PurchasePrice,
			&m.ExpirationDate, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// Update actualiza los campos de catálogo. Nunca toca quantity:
// el stock solo cambia vía UpdateQuantity dentro de una tx del ledger.
func (r *MedicationRepo) Update(m *entity.Medication) error {
	query := `
		UPDATE medications
		SET name = $2, sale_price = $3, purchase_price = $4, expiration_date = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(context.Background(), query,
		m.ID, m.Name, m.SalePrice, m.PurchasePrice, m.ExpirationDate, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateQuantity fija la cantidad en stock. Solo debe llamarse con la fila ya
// bloqueada por GetForUpdate dentro de la misma transacción.
func (r *MedicationRepo) UpdateQuantity(id string, quantity int) error {
	query := `UPDATE medications SET quantity = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(context.Background(), query, id, quantity)
	if err != nil {
		return fmt.Errorf("update medication quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MedicationRepo) scanOne(row pgx.Row, op string) (*entity.Medication, error) {
	var m entity.Medication
	err := row.Scan(&m.ID, &m.Name, &m.Quantity, &m.SalePrice, &m.PurchasePrice,
		&m.ExpirationDate, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &m, nil
}
