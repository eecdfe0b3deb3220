package history

import (
	"context"
	"sort"

	"github.com/jhoicas/farmacia-pos/internal/application/dto"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

// DefaultLimit movimientos devueltos por defecto en modo plano.
const DefaultLimit = 50

// HistoryUseCase proyección de solo lectura sobre el historial de movimientos.
// Nunca modifica stock ni movimientos.
type HistoryUseCase struct {
	movRepo repository.StockMovementRepository
}

// NewHistoryUseCase construye el caso de uso.
func NewHistoryUseCase(movRepo repository.StockMovementRepository) *HistoryUseCase {
	return &HistoryUseCase{movRepo: movRepo}
}

// Filter filtros de consulta del historial.
type Filter struct {
	MedicationID string
	Type         string
	Limit        int
}

// ListMovements devuelve los movimientos más recientes (limit por defecto 50),
// enriquecidos con nombre del medicamento y del usuario.
func (uc *HistoryUseCase) ListMovements(ctx context.Context, f Filter) (*dto.MovementHistoryResponse, error) {
	if f.Type != "" && !entity.IsValidMovementType(f.Type) {
		return nil, domain.ErrInvalidInput
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := uc.movRepo.List(repository.MovementFilter{
		MedicationID: f.MedicationID,
		Type:         f.Type,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	movements := make([]dto.MovementResponse, 0, len(rows))
	for _, row := range rows {
		movements = append(movements, toMovementResponse(row))
	}
	return &dto.MovementHistoryResponse{Total: len(movements), Movements: movements}, nil
}

// ListGrouped devuelve TODOS los movimientos que cumplan el filtro (ignora limit),
// particionados por mes calendario de CreatedAt: un bucket por (año, mes),
// ordenados por año descendente y mes descendente dentro del año.
func (uc *HistoryUseCase) ListGrouped(ctx context.Context, f Filter) (*dto.GroupedHistoryResponse, error) {
	if f.Type != "" && !entity.IsValidMovementType(f.Type) {
		return nil, domain.ErrInvalidInput
	}
	rows, err := uc.movRepo.List(repository.MovementFilter{
		MedicationID: f.MedicationID,
		Type:         f.Type,
		Limit:        0, // sin límite
	})
	if err != nil {
		return nil, err
	}

	type bucketKey struct{ year, month int }
	buckets := make(map[bucketKey]*dto.MovementGroupResponse)
	var order []bucketKey
	for _, row := range rows {
		key := bucketKey{year: row.CreatedAt.Year(), month: int(row.CreatedAt.Month())}
		b, ok := buckets[key]
		if !ok {
			b = &dto.MovementGroupResponse{Year: key.year, Month: key.month}
			buckets[key] = b
			order = append(order, key)
		}
		b.Movements = append(b.Movements, toMovementResponse(row))
		b.Count++
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].year != order[j].year {
			return order[i].year > order[j].year
		}
		return order[i].month > order[j].month
	})

	groups := make([]dto.MovementGroupResponse, 0, len(order))
	for _, key := range order {
		groups = append(groups, *buckets[key])
	}
	return &dto.GroupedHistoryResponse{Groups: groups}, nil
}

func toMovementResponse(m *entity.MovementWithNames) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		MedicationID:   m.MedicationID,
		MedicationName: m.MedicationName,
		UserID:         m.UserID,
		UserName:       m.UserName,
		Type:           m.Type,
		Quantity:       m.Quantity,
		Reason:         m.Reason,
		PreviousStock:  m.PreviousStock,
		NewStock:       m.NewStock,
		CreatedAt:      m.CreatedAt,
	}
}
