package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/farmacia-pos/internal/application/auth"
	"github.com/jhoicas/farmacia-pos/internal/application/history"
	"github.com/jhoicas/farmacia-pos/internal/application/ledger"
	"github.com/jhoicas/farmacia-pos/internal/application/sales"
	"github.com/jhoicas/farmacia-pos/internal/application/usecase"
	"github.com/jhoicas/farmacia-pos/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MedicationUC *usecase.MedicationUseCase
	LedgerUC     *ledger.LedgerUseCase
	HistoryUC    *history.HistoryUseCase
	SaleUC       *sales.CompleteSaleUseCase
	AuthUC       *auth.AuthUseCase
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Medications (protegido; alta y edición solo admin)
	medications := protected.Group("/medications")
	medicationHandler := NewMedicationHandler(deps.MedicationUC)
	medications.Post("/", RequireRole(entity.RoleAdmin), medicationHandler.Create)
	medications.Get("/", medicationHandler.List)
	medications.Get("/:id", medicationHandler.GetByID)
	medications.Put("/:id", RequireRole(entity.RoleAdmin), medicationHandler.Update)

	// Movimientos de stock (protegido; registro solo admin, lectura cualquiera)
	invGroup := protected.Group("/inventory")
	movementHandler := NewMovementHandler(deps.LedgerUC, deps.HistoryUC)
	invGroup.Post("/movements", RequireRole(entity.RoleAdmin), movementHandler.RegisterMovement)
	invGroup.Get("/movements", movementHandler.GetHistory)

	// Ventas (protegido; admin y vendedor)
	salesGroup := protected.Group("/sales")
	saleHandler := NewSaleHandler(deps.SaleUC)
	salesGroup.Post("/", RequireRole(entity.RoleAdmin, entity.RoleVendedor), saleHandler.Create)
	salesGroup.Get("/:id", saleHandler.GetByID)
}
