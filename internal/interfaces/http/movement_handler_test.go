package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-pos/internal/application/dto"
	"github.com/jhoicas/farmacia-pos/internal/application/history"
	"github.com/jhoicas/farmacia-pos/internal/application/ledger"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
	"github.com/jhoicas/farmacia-pos/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria para ejercitar los handlers de punta a punta
// ──────────────────────────────────────────────────────────────────────────────

type handlerStore struct {
	mu   sync.Mutex
	meds map[string]*entity.Medication
	movs []*entity.StockMovement
}

type handlerMedRepo struct{ s *handlerStore }

func (r *handlerMedRepo) Create(m *entity.Medication) error {
	c := *m
	r.s.meds[m.ID] = &c
	return nil
}

func (r *handlerMedRepo) GetByID(id string) (*entity.Medication, error) {
	m, ok := r.s.meds[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r *handlerMedRepo) GetByName(name string) (*entity.Medication, error) { return nil, nil }

func (r *handlerMedRepo) List(limit, offset int) ([]*entity.Medication, error) { return nil, nil }

func (r *handlerMedRepo) Update(m *entity.Medication) error { return nil }

func (r *handlerMedRepo) GetForUpdate(id string) (*entity.Medication, error) { return r.GetByID(id) }

func (r *handlerMedRepo) UpdateQuantity(id string, quantity int) error {
	m, ok := r.s.meds[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Quantity = quantity
	return nil
}

type handlerMovRepo struct{ s *handlerStore }

func (r *handlerMovRepo) Create(m *entity.StockMovement) error {
	c := *m
	r.s.movs = append(r.s.movs, &c)
	return nil
}

func (r *handlerMovRepo) GetByID(id string) (*entity.StockMovement, error) { return nil, nil }

func (r *handlerMovRepo) List(f repository.MovementFilter) ([]*entity.MovementWithNames, error) {
	var out []*entity.MovementWithNames
	for _, m := range r.s.movs {
		if f.MedicationID != "" && m.MedicationID != f.MedicationID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		out = append(out, &entity.MovementWithNames{StockMovement: *m, MedicationName: "med", UserName: "Ana"})
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type handlerTxRunner struct{ s *handlerStore }

func (r *handlerTxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	medRepo repository.MedicationRepository,
) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	medsBk := make(map[string]*entity.Medication, len(r.s.meds))
	for k, v := range r.s.meds {
		c := *v
		medsBk[k] = &c
	}
	movsBk := append([]*entity.StockMovement(nil), r.s.movs...)

	if err := fn(&handlerMovRepo{r.s}, &handlerMedRepo{r.s}); err != nil {
		r.s.meds = medsBk
		r.s.movs = movsBk
		return err
	}
	return nil
}

func newMovementApp(s *handlerStore) *fiber.App {
	ledgerUC := ledger.NewLedgerUseCase(&handlerTxRunner{s})
	historyUC := history.NewHistoryUseCase(&handlerMovRepo{s})
	handler := NewMovementHandler(ledgerUC, historyUC)

	app := fiber.New()
	// Inyecta el user_id que normalmente pone AuthMiddleware
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalUserID, "u1")
		c.Locals(LocalRole, entity.RoleAdmin)
		return c.Next()
	})
	app.Post("/movements", handler.RegisterMovement)
	app.Get("/movements", handler.GetHistory)
	return app
}

func doPost(t *testing.T, app *fiber.App, body dto.RegisterMovementRequest) (int, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/movements", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /movements
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterMovement_EntradaEnLote(t *testing.T) {
	s := &handlerStore{meds: map[string]*entity.Medication{
		"m1": {ID: "m1", Name: "Ibuprofeno", Quantity: 10},
	}}
	app := newMovementApp(s)

	status, body := doPost(t, app, dto.RegisterMovementRequest{
		Type: entity.MovementTypeENTRY,
		Items: []dto.MovementItemRequest{
			{MedicationID: "m1", Quantity: 5},
			{MedicationID: "no-existe", Quantity: 2},
		},
	})
	require.Equal(t, fiber.StatusCreated, status)

	var out dto.BatchEntryResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Applied)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.Items, 2)
	assert.Equal(t, ledger.BatchItemApplied, out.Items[0].Status)
	assert.Equal(t, ledger.BatchItemSkipped, out.Items[1].Status)

	assert.Equal(t, 15, s.meds["m1"].Quantity)
}

func TestRegisterMovement_Salida(t *testing.T) {
	s := &handlerStore{meds: map[string]*entity.Medication{
		"m1": {ID: "m1", Quantity: 10},
	}}
	app := newMovementApp(s)

	status, _ := doPost(t, app, dto.RegisterMovementRequest{
		Type:         entity.MovementTypeEXIT,
		MedicationID: "m1",
		Quantity:     4,
		Reason:       "merma",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, 6, s.meds["m1"].Quantity)
}

// Para CORRECTION, quantity del body es el stock objetivo absoluto.
func TestRegisterMovement_CorreccionAbsoluta(t *testing.T) {
	s := &handlerStore{meds: map[string]*entity.Medication{
		"m1": {ID: "m1", Quantity: 120},
	}}
	app := newMovementApp(s)

	status, _ := doPost(t, app, dto.RegisterMovementRequest{
		Type:         entity.MovementTypeCORRECTION,
		MedicationID: "m1",
		Quantity:     110,
		Reason:       "conteo físico",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, 110, s.meds["m1"].Quantity)

	require.Len(t, s.movs, 1)
	assert.Equal(t, 10, s.movs[0].Quantity) // |110 - 120|
	assert.Equal(t, 120, s.movs[0].PreviousStock)
	assert.Equal(t, 110, s.movs[0].NewStock)
}

func TestRegisterMovement_TipoInvalido(t *testing.T) {
	s := &handlerStore{meds: map[string]*entity.Medication{}}
	app := newMovementApp(s)

	status, _ := doPost(t, app, dto.RegisterMovementRequest{Type: "TRANSFER"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRegisterMovement_MedicamentoInexistenteDevuelve404(t *testing.T) {
	s := &handlerStore{meds: map[string]*entity.Medication{}}
	app := newMovementApp(s)

	status, _ := doPost(t, app, dto.RegisterMovementRequest{
		Type:         entity.MovementTypeEXIT,
		MedicationID: "nope",
		Quantity:     1,
	})
	assert.Equal(t, fiber.StatusNotFound, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// GET /movements
// ──────────────────────────────────────────────────────────────────────────────

func TestGetHistory_PlanoYAgrupado(t *testing.T) {
	now := time.Now()
	s := &handlerStore{
		meds: map[string]*entity.Medication{},
		movs: []*entity.StockMovement{
			{ID: "a", MedicationID: "m1", Type: entity.MovementTypeENTRY, Quantity: 5, CreatedAt: now},
			{ID: "b", MedicationID: "m1", Type: entity.MovementTypeEXIT, Quantity: 2, CreatedAt: now},
		},
	}
	app := newMovementApp(s)

	// Plano
	req := httptest.NewRequest("GET", "/movements", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var flat dto.MovementHistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&flat))
	resp.Body.Close()
	assert.Equal(t, 2, flat.Total)

	// Filtrado por tipo
	req = httptest.NewRequest("GET", "/movements?type=EXIT", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&flat))
	resp.Body.Close()
	assert.Equal(t, 1, flat.Total)

	// Agrupado: ambos movimientos caen en el mes actual
	req = httptest.NewRequest("GET", "/movements?grouped=true", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var grouped dto.GroupedHistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&grouped))
	resp.Body.Close()
	require.Len(t, grouped.Groups, 1)
	assert.Equal(t, now.Year(), grouped.Groups[0].Year)
	assert.Equal(t, int(now.Month()), grouped.Groups[0].Month)
	assert.Equal(t, 2, grouped.Groups[0].Count)
}

func TestGetHistory_TipoInvalidoDevuelve400(t *testing.T) {
	s := &handlerStore{meds: map[string]*entity.Medication{}}
	app := newMovementApp(s)

	req := httptest.NewRequest("GET", "/movements?type=XYZ", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
