package ledger_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos/internal/application/ledger"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ──────────────────────────────────────────────────────────────────────────────

var errPersistencia = errors.New("fallo de persistencia simulado")

// memStore almacena medicamentos y movimientos en memoria. El mutex emula el
// bloqueo de fila (FOR UPDATE): cada transacción del runner lo mantiene de
// principio a fin, serializando escritores concurrentes.
type memStore struct {
	mu   sync.Mutex
	meds map[string]*entity.Medication
	movs []*entity.StockMovement

	// failMovCreateAt > 0 hace fallar el N-ésimo Create de movimiento
	// (para probar rollback a mitad de lote).
	failMovCreateAt int
	movCreates      int
}

func newMemStore() *memStore {
	return &memStore{meds: make(map[string]*entity.Medication)}
}

func (s *memStore) addMedication(id string, quantity int) {
	s.meds[id] = &entity.Medication{
		ID:       id,
		Name:     "med-" + id,
		Quantity: quantity,
	}
}

type memMedicationRepo struct{ s *memStore }

func (r *memMedicationRepo) Create(m *entity.Medication) error {
	c := *m
	r.s.meds[m.ID] = &c
	return nil
}

func (r *memMedicationRepo) GetByID(id string) (*entity.Medication, error) {
	m, ok := r.s.meds[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r *memMedicationRepo) GetByName(name string) (*entity.Medication, error) {
	for _, m := range r.s.meds {
		if m.Name == name {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memMedicationRepo) List(limit, offset int) ([]*entity.Medication, error) {
	var out []*entity.Medication
	for _, m := range r.s.meds {
		c := *m
		out = append(out, &c)
	}
	return out, nil
}

func (r *memMedicationRepo) Update(m *entity.Medication) error {
	if _, ok := r.s.meds[m.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *m
	r.s.meds[m.ID] = &c
	return nil
}

// GetForUpdate: el bloqueo real lo emula el runner con el mutex del store.
func (r *memMedicationRepo) GetForUpdate(id string) (*entity.Medication, error) {
	return r.GetByID(id)
}

func (r *memMedicationRepo) UpdateQuantity(id string, quantity int) error {
	m, ok := r.s.meds[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Quantity = quantity
	return nil
}

type memMovementRepo struct{ s *memStore }

func (r *memMovementRepo) Create(m *entity.StockMovement) error {
	r.s.movCreates++
	if r.s.failMovCreateAt > 0 && r.s.movCreates >= r.s.failMovCreateAt {
		return errPersistencia
	}
	c := *m
	r.s.movs = append(r.s.movs, &c)
	return nil
}

func (r *memMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	for _, m := range r.s.movs {
		if m.ID == id {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memMovementRepo) List(f repository.MovementFilter) ([]*entity.MovementWithNames, error) {
	var out []*entity.MovementWithNames
	for _, m := range r.s.movs {
		if f.MedicationID != "" && m.MedicationID != f.MedicationID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		out = append(out, &entity.MovementWithNames{StockMovement: *m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// memTxRunner serializa transacciones con el mutex del store y hace rollback
// restaurando un snapshot si el callback falla (emula Commit/Rollback).
type memTxRunner struct{ s *memStore }

func (r *memTxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	medRepo repository.MedicationRepository,
) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	medsBackup := make(map[string]*entity.Medication, len(r.s.meds))
	for k, v := range r.s.meds {
		c := *v
		medsBackup[k] = &c
	}
	movsBackup := make([]*entity.StockMovement, len(r.s.movs))
	copy(movsBackup, r.s.movs)

	if err := fn(&memMovementRepo{r.s}, &memMedicationRepo{r.s}); err != nil {
		r.s.meds = medsBackup
		r.s.movs = movsBackup
		return err
	}
	return nil
}

func newLedger(s *memStore) *ledger.LedgerUseCase {
	return ledger.NewLedgerUseCase(&memTxRunner{s})
}

// ──────────────────────────────────────────────────────────────────────────────
// Entradas
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordEntry_SumaStockYEncadenaSnapshots(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 100)
	uc := newLedger(s)

	err := uc.RecordEntry(context.Background(), ledger.EntryInput{
		MedicationID: "m1", Quantity: 50, Reason: "restock", UserID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, 150, s.meds["m1"].Quantity)
	require.Len(t, s.movs, 1)
	mov := s.movs[0]
	assert.Equal(t, entity.MovementTypeENTRY, mov.Type)
	assert.Equal(t, 50, mov.Quantity)
	assert.Equal(t, 100, mov.PreviousStock)
	assert.Equal(t, 150, mov.NewStock)
	assert.Equal(t, "restock", mov.Reason)
	assert.Equal(t, "u1", mov.UserID)
}

func TestRecordEntry_CantidadNoPositivaSeRechazaSinEscribir(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 10)
	uc := newLedger(s)

	for _, q := range []int{0, -5} {
		err := uc.RecordEntry(context.Background(), ledger.EntryInput{MedicationID: "m1", Quantity: q, UserID: "u1"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Equal(t, 10, s.meds["m1"].Quantity)
	assert.Empty(t, s.movs)
}

func TestRecordEntry_MedicamentoInexistente(t *testing.T) {
	s := newMemStore()
	uc := newLedger(s)

	err := uc.RecordEntry(context.Background(), ledger.EntryInput{MedicationID: "nope", Quantity: 5, UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, s.movs)
}

// ──────────────────────────────────────────────────────────────────────────────
// Salidas
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordExit_RestaStock(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 150)
	uc := newLedger(s)

	err := uc.RecordExit(context.Background(), ledger.ExitInput{
		MedicationID: "m1", Quantity: 30, Reason: "salida manual", UserID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, 120, s.meds["m1"].Quantity)
	require.Len(t, s.movs, 1)
	assert.Equal(t, entity.MovementTypeEXIT, s.movs[0].Type)
	assert.Equal(t, 30, s.movs[0].Quantity)
	assert.Equal(t, 150, s.movs[0].PreviousStock)
	assert.Equal(t, 120, s.movs[0].NewStock)
}

// Una salida mayor al stock disponible deja el stock en 0 (floor), no se
// rechaza; el movimiento guarda la cantidad solicitada.
func TestRecordExit_ExcesoFlooreaEnCero(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 7)
	uc := newLedger(s)

	err := uc.RecordExit(context.Background(), ledger.ExitInput{MedicationID: "m1", Quantity: 20, UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, 0, s.meds["m1"].Quantity)
	require.Len(t, s.movs, 1)
	assert.Equal(t, 20, s.movs[0].Quantity)
	assert.Equal(t, 7, s.movs[0].PreviousStock)
	assert.Equal(t, 0, s.movs[0].NewStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Correcciones
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordCorrection_FijaStockAbsoluto(t *testing.T) {
	cases := []struct {
		name      string
		start     int
		target    int
		magnitude int
	}{
		{"disminuye", 120, 110, 10},
		{"aumenta", 40, 55, 15},
		{"sin cambio", 20, 20, 0},
		{"a cero", 9, 0, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newMemStore()
			s.addMedication("m1", tc.start)
			uc := newLedger(s)

			err := uc.RecordCorrection(context.Background(), ledger.CorrectionInput{
				MedicationID: "m1", TargetQuantity: tc.target, Reason: "recount", UserID: "u1",
			})
			require.NoError(t, err)

			assert.Equal(t, tc.target, s.meds["m1"].Quantity)
			require.Len(t, s.movs, 1)
			mov := s.movs[0]
			assert.Equal(t, entity.MovementTypeCORRECTION, mov.Type)
			assert.Equal(t, tc.magnitude, mov.Quantity)
			assert.Equal(t, tc.start, mov.PreviousStock)
			assert.Equal(t, tc.target, mov.NewStock)
		})
	}
}

func TestRecordCorrection_TargetNegativoSeRechaza(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 10)
	uc := newLedger(s)

	err := uc.RecordCorrection(context.Background(), ledger.CorrectionInput{MedicationID: "m1", TargetQuantity: -1, UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 10, s.meds["m1"].Quantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Entradas en lote
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordBatchEntry_SaltaLineasInvalidasYAplicaElResto(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 10)
	s.addMedication("m2", 5)
	uc := newLedger(s)

	results, err := uc.RecordBatchEntry(context.Background(), ledger.BatchEntryInput{
		UserID: "u1",
		Items: []ledger.BatchEntryLine{
			{MedicationID: "m1", Quantity: 3},
			{MedicationID: "fantasma", Quantity: 4}, // no existe -> skipped
			{MedicationID: "m2", Quantity: 0},       // cantidad inválida -> skipped
			{MedicationID: "m2", Quantity: 7},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, ledger.BatchItemApplied, results[0].Status)
	assert.Equal(t, ledger.BatchItemSkipped, results[1].Status)
	assert.NotEmpty(t, results[1].Reason)
	assert.Equal(t, ledger.BatchItemSkipped, results[2].Status)
	assert.Equal(t, ledger.BatchItemApplied, results[3].Status)

	assert.Equal(t, 13, s.meds["m1"].Quantity)
	assert.Equal(t, 12, s.meds["m2"].Quantity)
	assert.Len(t, s.movs, 2) // solo las líneas aplicadas generan movimiento
}

func TestRecordBatchEntry_FalloDePersistenciaRevierteTodo(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 10)
	s.addMedication("m2", 5)
	s.failMovCreateAt = 2 // la segunda línea falla al persistir el movimiento
	uc := newLedger(s)

	_, err := uc.RecordBatchEntry(context.Background(), ledger.BatchEntryInput{
		UserID: "u1",
		Items: []ledger.BatchEntryLine{
			{MedicationID: "m1", Quantity: 3},
			{MedicationID: "m2", Quantity: 7},
		},
	})
	require.Error(t, err)

	// Ninguna línea sobrevive: ni la que ya se había aplicado
	assert.Equal(t, 10, s.meds["m1"].Quantity)
	assert.Equal(t, 5, s.meds["m2"].Quantity)
	assert.Empty(t, s.movs)
}

func TestRecordBatchEntry_LoteVacioSeRechaza(t *testing.T) {
	s := newMemStore()
	uc := newLedger(s)

	_, err := uc.RecordBatchEntry(context.Background(), ledger.BatchEntryInput{UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

// Escenario completo: 100 -> entrada 50 -> salida 30 -> corrección a 110.
func TestEscenarioEntradaSalidaCorreccion(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 100)
	uc := newLedger(s)
	ctx := context.Background()

	require.NoError(t, uc.RecordEntry(ctx, ledger.EntryInput{MedicationID: "m1", Quantity: 50, Reason: "restock", UserID: "u1"}))
	assert.Equal(t, 150, s.meds["m1"].Quantity)

	require.NoError(t, uc.RecordExit(ctx, ledger.ExitInput{MedicationID: "m1", Quantity: 30, Reason: "salida", UserID: "u1"}))
	assert.Equal(t, 120, s.meds["m1"].Quantity)

	require.NoError(t, uc.RecordCorrection(ctx, ledger.CorrectionInput{MedicationID: "m1", TargetQuantity: 110, Reason: "recount", UserID: "u1"}))
	assert.Equal(t, 110, s.meds["m1"].Quantity)

	require.Len(t, s.movs, 3)
	assert.Equal(t, []int{100, 150, 120}, []int{s.movs[0].PreviousStock, s.movs[1].PreviousStock, s.movs[2].PreviousStock})
	assert.Equal(t, []int{150, 120, 110}, []int{s.movs[0].NewStock, s.movs[1].NewStock, s.movs[2].NewStock})
	assert.Equal(t, 10, s.movs[2].Quantity) // |110 - 120|

	// La cantidad final del medicamento coincide con el NewStock del último movimiento
	assert.Equal(t, s.movs[2].NewStock, s.meds["m1"].Quantity)
}

// Dos entradas concurrentes (+5 y +3) sobre stock 10 deben terminar en 18,
// con snapshots encadenados (nunca una actualización perdida que dé 15 o 13).
func TestConcurrencia_EntradasSimultaneasSinPerdida(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 10)
	uc := newLedger(s)

	var wg sync.WaitGroup
	for _, q := range []int{5, 3} {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			err := uc.RecordEntry(context.Background(), ledger.EntryInput{MedicationID: "m1", Quantity: q, UserID: "u1"})
			assert.NoError(t, err)
		}(q)
	}
	wg.Wait()

	assert.Equal(t, 18, s.meds["m1"].Quantity)
	require.Len(t, s.movs, 2)

	// La cadena previousStock/newStock debe dar cuenta de ambos deltas en algún orden
	movs := append([]*entity.StockMovement(nil), s.movs...)
	sort.Slice(movs, func(i, j int) bool { return movs[i].PreviousStock < movs[j].PreviousStock })
	assert.Equal(t, 10, movs[0].PreviousStock)
	assert.Equal(t, movs[0].NewStock, movs[1].PreviousStock)
	assert.Equal(t, 18, movs[1].NewStock)
}

// Para cualquier secuencia de operaciones, la cantidad final es el NewStock
// del último movimiento aplicado.
func TestCantidadFinalCoincideConUltimoMovimiento(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 25)
	uc := newLedger(s)
	ctx := context.Background()

	require.NoError(t, uc.RecordEntry(ctx, ledger.EntryInput{MedicationID: "m1", Quantity: 12, UserID: "u1"}))
	require.NoError(t, uc.RecordExit(ctx, ledger.ExitInput{MedicationID: "m1", Quantity: 40, UserID: "u1"})) // floor en 0
	require.NoError(t, uc.RecordCorrection(ctx, ledger.CorrectionInput{MedicationID: "m1", TargetQuantity: 8, UserID: "u1"}))
	require.NoError(t, uc.RecordEntry(ctx, ledger.EntryInput{MedicationID: "m1", Quantity: 2, UserID: "u1"}))

	last := s.movs[len(s.movs)-1]
	assert.Equal(t, last.NewStock, s.meds["m1"].Quantity)
	assert.Equal(t, 10, s.meds["m1"].Quantity)
}

// Releer un movimiento devuelve siempre los mismos snapshots (inmutabilidad).
func TestMovimientosInmutablesAlReleer(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 10)
	uc := newLedger(s)
	ctx := context.Background()

	require.NoError(t, uc.RecordEntry(ctx, ledger.EntryInput{MedicationID: "m1", Quantity: 5, UserID: "u1"}))
	id := s.movs[0].ID

	repo := &memMovementRepo{s}
	first, err := repo.GetByID(id)
	require.NoError(t, err)

	require.NoError(t, uc.RecordExit(ctx, ledger.ExitInput{MedicationID: "m1", Quantity: 2, UserID: "u1"}))

	second, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, first.PreviousStock, second.PreviousStock)
	assert.Equal(t, first.NewStock, second.NewStock)
	assert.Equal(t, first.Quantity, second.Quantity)
}

// El timestamp del movimiento queda fijado al momento de aplicarlo.
func TestMovimientoLlevaTimestamp(t *testing.T) {
	s := newMemStore()
	s.addMedication("m1", 1)
	uc := newLedger(s)

	before := time.Now()
	require.NoError(t, uc.RecordEntry(context.Background(), ledger.EntryInput{MedicationID: "m1", Quantity: 1, UserID: "u1"}))
	after := time.Now()

	require.Len(t, s.movs, 1)
	created := s.movs[0].CreatedAt
	assert.False(t, created.Before(before))
	assert.False(t, created.After(after))
}
