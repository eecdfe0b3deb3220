package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/farmacia-pos/internal/application/dto"
	"github.com/jhoicas/farmacia-pos/internal/application/history"
	"github.com/jhoicas/farmacia-pos/internal/application/ledger"
	"github.com/jhoicas/farmacia-pos/internal/domain"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
)

// MovementHandler maneja las peticiones HTTP de movimientos de stock (protegido).
type MovementHandler struct {
	ledger  *ledger.LedgerUseCase
	history *history.HistoryUseCase
}

// NewMovementHandler construye el handler.
func NewMovementHandler(ledgerUC *ledger.LedgerUseCase, historyUC *history.HistoryUseCase) *MovementHandler {
	return &MovementHandler{ledger: ledgerUC, history: historyUC}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de stock
// @Description  ENTRY recibe items (lote, líneas inválidas se saltan con motivo);
//
//	EXIT y CORRECTION reciben medication_id y quantity. Para CORRECTION,
//	quantity es el stock objetivo absoluto, no un delta.
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "type, items (ENTRY) o medication_id+quantity (EXIT/CORRECTION)"
// @Success      201   {object}  dto.BatchEntryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *MovementHandler) RegisterMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if !entity.IsValidMovementType(in.Type) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type debe ser ENTRY, EXIT o CORRECTION"})
	}

	switch in.Type {
	case entity.MovementTypeENTRY:
		lines := make([]ledger.BatchEntryLine, 0, len(in.Items))
		for _, item := range in.Items {
			lines = append(lines, ledger.BatchEntryLine{
				MedicationID: item.MedicationID,
				Quantity:     item.Quantity,
				Reason:       item.Reason,
			})
		}
		results, err := h.ledger.RecordBatchEntry(c.Context(), ledger.BatchEntryInput{UserID: userID, Items: lines})
		if err != nil {
			return movementError(c, err)
		}
		out := dto.BatchEntryResponse{Items: results}
		for _, res := range results {
			if res.Status == ledger.BatchItemApplied {
				out.Applied++
			} else {
				out.Skipped++
			}
		}
		return c.Status(fiber.StatusCreated).JSON(out)

	case entity.MovementTypeEXIT:
		err := h.ledger.RecordExit(c.Context(), ledger.ExitInput{
			MedicationID: in.MedicationID,
			Quantity:     in.Quantity,
			Reason:       in.Reason,
			UserID:       userID,
		})
		if err != nil {
			return movementError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "movimiento registrado"})

	default: // CORRECTION
		err := h.ledger.RecordCorrection(c.Context(), ledger.CorrectionInput{
			MedicationID:   in.MedicationID,
			TargetQuantity: in.Quantity,
			Reason:         in.Reason,
			UserID:         userID,
		})
		if err != nil {
			return movementError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "movimiento registrado"})
	}
}

// GetHistory godoc
// @Summary      Historial de movimientos
// @Description  Sin grouped devuelve los últimos limit movimientos (50 por defecto),
//
//	más recientes primero. Con grouped=true ignora limit y agrupa TODOS los
//	movimientos por mes calendario, ordenados por año y mes descendentes.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        medication_id  query  string  false  "Filtrar por medicamento"
// @Param        type           query  string  false  "ENTRY | EXIT | CORRECTION"
// @Param        limit          query  int     false  "Máximo de movimientos (modo plano)"
// @Param        grouped        query  bool    false  "Agrupar por mes calendario"
// @Success      200  {object}  dto.MovementHistoryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *MovementHandler) GetHistory(c *fiber.Ctx) error {
	f := history.Filter{
		MedicationID: c.Query("medication_id"),
		Type:         c.Query("type"),
		Limit:        c.QueryInt("limit", 0),
	}
	if c.QueryBool("grouped", false) {
		out, err := h.history.ListGrouped(c.Context(), f)
		if err != nil {
			return movementError(c, err)
		}
		return c.JSON(out)
	}
	out, err := h.history.ListMovements(c.Context(), f)
	if err != nil {
		return movementError(c, err)
	}
	return c.JSON(out)
}

// movementError mapea errores de dominio a status HTTP.
func movementError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "medicamento no encontrado"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "conflicto de concurrencia, reintente"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
