package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
// La tabla es de solo inserción: no hay Update ni Delete.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento de stock.
func (r *StockMovementRepo) Create(m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, medication_id, user_id, type, quantity, reason, previous_stock, new_stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	reason := (*string)(nil)
	if m.Reason != "" {
		reason = &m.Reason
	}
	_, err := r.q.Exec(context.Background(), query,
		m.ID, m.MedicationID, m.UserID, m.Type, m.Quantity, reason,
		m.PreviousStock, m.NewStock, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	query := `
		SELECT id, medication_id, user_id, type, quantity, reason, previous_stock, new_stock, created_at
		FROM stock_movements WHERE id = $1`
	var m entity.StockMovement
	var reason *string
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&m.ID, &m.MedicationID, &m.UserID, &m.Type, &m.Quantity, &reason,
		&m.PreviousStock, &m.NewStock, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	if reason != nil {
		m.Reason = *reason
	}
	return &m, nil
}

// List devuelve movimientos según filtro, más recientes primero, enriquecidos
// con el nombre del medicamento y del usuario. Limit <= 0 significa sin límite.
func (r *StockMovementRepo) List(f repository.MovementFilter) ([]*entity.MovementWithNames, error) {
	query := `
		SELECT sm.id, sm.medication_id, sm.user_id, sm.type, sm.quantity, sm.reason,
		       sm.previous_stock, sm.new_stock, sm.created_at,
		       med.name, COALESCE(u.name, '')
		FROM stock_movements sm
		JOIN medications med ON med.id = sm.medication_id
		LEFT JOIN users u ON u.id = sm.user_id
		WHERE 1=1`
	var args []any
	pos := 1
	if f.MedicationID != "" {
		query += fmt.Sprintf(" AND sm.medication_id = $%d", pos)
		args = append(args, f.MedicationID)
		pos++
	}
	if f.Type != "" {
		query += fmt.Sprintf(" AND sm.type = $%d", pos)
		args = append(args, f.Type)
		pos++
	}
	query += " ORDER BY sm.created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, f.Limit)
	}

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.MovementWithNames
	for rows.Next() {
		var m entity.MovementWithNames
		var reason *string
		if err := rows.Scan(&m.ID, &m.MedicationID, &m.UserID, &m.Type, &m.Quantity, &reason,
			&m.PreviousStock, &m.NewStock, &m.CreatedAt, &m.MedicationName, &m.UserName); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		if reason != nil {
			m.Reason = *reason
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
