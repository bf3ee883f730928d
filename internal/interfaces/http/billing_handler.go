package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Taller-api/internal/application/dto"
)

// billingService lo implementa *billing.UseCase.
type billingService interface {
	GetSummary(ctx context.Context, orderID string) (*dto.BillingSummaryResponse, error)
	ToggleItemTax(ctx context.Context, orderID string, in dto.ToggleTaxRequest) (*dto.BillingSummaryResponse, error)
	SetDiscount(ctx context.Context, orderID string, in dto.SetDiscountRequest) (*dto.BillingSummaryResponse, error)
	AppendPayment(ctx context.Context, orderID string, in dto.PaymentRequest) (*dto.BillingSummaryResponse, error)
	CommitBatch(ctx context.Context, orderID string, in dto.BatchPaymentRequest) (*dto.BatchPaymentResponse, error)
	ResolveDiagnosticOnly(ctx context.Context, orderID string) (*dto.SettlementResponse, error)
	FinalizeRefundDecision(ctx context.Context, orderID string, in dto.RefundDecisionRequest) (*dto.RefundDecisionResponse, error)
	AddVoucher(ctx context.Context, orderID string, in dto.AddVoucherRequest) (*dto.VoucherResponse, error)
	RemoveVoucher(ctx context.Context, orderID, voucherID string) (*dto.VoucherListResponse, error)
	MonthlyIncome(ctx context.Context, year, month int) (*dto.IncomeReportResponse, error)
}

// BillingHandler cobros de informes técnicos (protegido).
type BillingHandler struct {
	uc billingService
}

// NewBillingHandler construye el handler.
func NewBillingHandler(uc billingService) *BillingHandler {
	return &BillingHandler{uc: uc}
}

// GetSummary godoc
// @Summary      Vista de cobro del informe
// @Tags         billing
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del informe"
// @Success      200  {object}  dto.BillingSummaryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/billing [get]
func (h *BillingHandler) GetSummary(c *fiber.Ctx) error {
	out, err := h.uc.GetSummary(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ToggleTax godoc
// @Summary      Activar o quitar IGV de un ítem
// @Tags         billing
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del informe"
// @Param        body  body  dto.ToggleTaxRequest  true  "Ítem"
// @Success      200   {object}  dto.BillingSummaryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/billing/tax-toggle [post]
func (h *BillingHandler) ToggleTax(c *fiber.Ctx) error {
	var in dto.ToggleTaxRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.ToggleItemTax(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetDiscount godoc
// @Summary      Fijar descuento
// @Description  Un monto negativo se ignora y devuelve la vista actual.
// @Tags         billing
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del informe"
// @Param        body  body  dto.SetDiscountRequest  true  "Descuento"
// @Success      200   {object}  dto.BillingSummaryResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/billing/discount [put]
func (h *BillingHandler) SetDiscount(c *fiber.Ctx) error {
	var in dto.SetDiscountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SetDiscount(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AppendPayment godoc
// @Summary      Registrar un pago
// @Tags         payments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del informe"
// @Param        body  body  dto.PaymentRequest  true  "Pago"
// @Success      201   {object}  dto.BillingSummaryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/payments [post]
func (h *BillingHandler) AppendPayment(c *fiber.Ctx) error {
	var in dto.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AppendPayment(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// CommitBatch godoc
// @Summary      Confirmar lote de pagos
// @Description  Los pagos se registran en orden. Si uno falla, los anteriores quedan registrados y se informa cuántos.
// @Tags         payments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del informe"
// @Param        body  body  dto.BatchPaymentRequest  true  "Lote"
// @Success      201   {object}  dto.BatchPaymentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.BatchErrorResponse
// @Router       /api/work-orders/{id}/payments/batch [post]
func (h *BillingHandler) CommitBatch(c *fiber.Ctx) error {
	var in dto.BatchPaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CommitBatch(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ResolveDiagnostic godoc
// @Summary      Evaluar cobro solo de diagnóstico
// @Tags         settlement
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del informe"
// @Success      200  {object}  dto.SettlementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/settlement/diagnostic [post]
func (h *BillingHandler) ResolveDiagnostic(c *fiber.Ctx) error {
	out, err := h.uc.ResolveDiagnosticOnly(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RefundDecision godoc
// @Summary      Resolver adelanto excedente (REFUND | RETAIN)
// @Tags         settlement
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del informe"
// @Param        body  body  dto.RefundDecisionRequest  true  "Decisión"
// @Success      200   {object}  dto.RefundDecisionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/settlement/refund-decision [post]
func (h *BillingHandler) RefundDecision(c *fiber.Ctx) error {
	var in dto.RefundDecisionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.FinalizeRefundDecision(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AddVoucher godoc
// @Summary      Registrar comprobante
// @Tags         vouchers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del informe"
// @Param        body  body  dto.AddVoucherRequest  true  "Comprobante"
// @Success      201   {object}  dto.VoucherResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/vouchers [post]
func (h *BillingHandler) AddVoucher(c *fiber.Ctx) error {
	var in dto.AddVoucherRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AddVoucher(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// RemoveVoucher godoc
// @Summary      Quitar comprobante
// @Tags         vouchers
// @Security     Bearer
// @Produce      json
// @Param        id         path  string  true  "ID del informe"
// @Param        voucherId  path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.VoucherListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/vouchers/{voucherId} [delete]
func (h *BillingHandler) RemoveVoucher(c *fiber.Ctx) error {
	out, err := h.uc.RemoveVoucher(c.UserContext(), c.Params("id"), c.Params("voucherId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// MonthlyIncome godoc
// @Summary      Ingresos del mes por método de pago
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        year   query  int  true  "Año"
// @Param        month  query  int  true  "Mes (1-12)"
// @Success      200  {object}  dto.IncomeReportResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/income [get]
func (h *BillingHandler) MonthlyIncome(c *fiber.Ctx) error {
	year := c.QueryInt("year", 0)
	month := c.QueryInt("month", 0)
	out, err := h.uc.MonthlyIncome(c.UserContext(), year, month)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
