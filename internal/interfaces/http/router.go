package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Taller-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Billing   billingService
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	h := NewBillingHandler(deps.Billing)
	cashier := RequireRole(jwt.RoleAdmin, jwt.RoleCashier)

	// Cobro del informe: lectura para todo el personal, cambios solo admin y caja
	orders := protected.Group("/work-orders/:id")
	orders.Get("/billing", h.GetSummary)
	orders.Post("/billing/tax-toggle", cashier, h.ToggleTax)
	orders.Put("/billing/discount", cashier, h.SetDiscount)

	orders.Post("/payments", cashier, h.AppendPayment)
	orders.Post("/payments/batch", cashier, h.CommitBatch)

	orders.Post("/settlement/diagnostic", cashier, h.ResolveDiagnostic)
	orders.Post("/settlement/refund-decision", cashier, h.RefundDecision)

	orders.Post("/vouchers", cashier, h.AddVoucher)
	orders.Delete("/vouchers/:voucherId", cashier, h.RemoveVoucher)

	reports := protected.Group("/reports", RequireRole(jwt.RoleAdmin, jwt.RoleCashier))
	reports.Get("/income", h.MonthlyIncome)
}
