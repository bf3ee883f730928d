package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostItemResponse ítem cobrable con su impuesto.
type CostItemResponse struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	Category   string          `json:"category"`
	SourceArea string          `json:"source_area,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Taxed      bool            `json:"taxed"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
}

// CategorySubtotalsResponse subtotales base por categoría.
type CategorySubtotalsResponse struct {
	Diagnostic  decimal.Decimal `json:"diagnostic"`
	MainService decimal.Decimal `json:"main_service"`
	Extra       decimal.Decimal `json:"extra"`
}

// PaymentResponse pago del libro.
type PaymentResponse struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
}

// VoucherResponse comprobante registrado.
type VoucherResponse struct {
	ID     string           `json:"id"`
	Type   string           `json:"type"`
	Number string           `json:"number"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// BillingSummaryResponse vista de cobro de un informe (GET /api/work-orders/:id/billing).
// NetPayable y Balance son los valores a mostrar (recortados a cero);
// SignedBalance negativo indica sobrepago.
type BillingSummaryResponse struct {
	OrderID          string                    `json:"order_id"`
	Version          int64                     `json:"version"`
	Currency         string                    `json:"currency"`
	Items            []CostItemResponse        `json:"items"`
	TaxApplicableIDs []string                  `json:"tax_applicable_item_ids"`
	SubtotalBase     decimal.Decimal           `json:"subtotal_base"`
	TotalTax         decimal.Decimal           `json:"total_tax"`
	GrandTotal       decimal.Decimal           `json:"grand_total"`
	Discount         decimal.Decimal           `json:"discount"`
	NetPayable       decimal.Decimal           `json:"net_payable"`
	RawNetPayable    decimal.Decimal           `json:"raw_net_payable"`
	PerCategory      CategorySubtotalsResponse `json:"per_category"`
	TotalPaid        decimal.Decimal           `json:"total_paid"`
	PaidSource       string                    `json:"paid_source"`
	Balance          decimal.Decimal           `json:"balance"`
	SignedBalance    decimal.Decimal           `json:"signed_balance"`
	SuggestedPayment decimal.Decimal           `json:"suggested_payment"`
	IsFullyPaid      bool                      `json:"is_fully_paid"`
	ChargeRevision   bool                      `json:"charge_revision"`
	ChargeRepair     bool                      `json:"charge_repair"`
	Payments         []PaymentResponse         `json:"payments"`
	Vouchers         []VoucherResponse         `json:"vouchers"`
	SettlementNote   string                    `json:"settlement_note,omitempty"`
}

// ToggleTaxRequest body para POST /api/work-orders/:id/billing/tax-toggle.
// ExpectedVersion opcional: si es distinto de cero y no coincide se responde 409.
type ToggleTaxRequest struct {
	ItemID          string `json:"item_id"`
	ExpectedVersion int64  `json:"expected_version,omitempty"`
}

// SetDiscountRequest body para PUT /api/work-orders/:id/billing/discount.
type SetDiscountRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	ExpectedVersion int64           `json:"expected_version,omitempty"`
}

// PaymentRequest pago individual o entrada de lote.
// SubMethod es obligatorio cuando Method es "Other".
type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	SubMethod string          `json:"sub_method,omitempty"`
}

// BatchPaymentRequest body para POST /api/work-orders/:id/payments/batch.
type BatchPaymentRequest struct {
	Entries         []PaymentRequest `json:"entries"`
	DiagnosticOnly  bool             `json:"diagnostic_only"`
	ExpectedVersion int64            `json:"expected_version,omitempty"`
}

// BatchPaymentResponse resultado de confirmar el lote.
type BatchPaymentResponse struct {
	CommittedCount int             `json:"committed_count"`
	Total          int             `json:"total"`
	Balance        decimal.Decimal `json:"balance"`
	IsFullyPaid    bool            `json:"is_fully_paid"`
	Version        int64           `json:"version"`
}

// BatchErrorResponse error de confirmación parcial: los primeros CommittedCount
// pagos quedaron registrados.
type BatchErrorResponse struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	CommittedCount int    `json:"committed_count"`
	Total          int    `json:"total"`
}

// SettlementResponse resultado de evaluar el cobro solo de diagnóstico.
// Amount es la diferencia a cobrar (NEEDS_PAYMENT) o el excedente (OVERPAID).
type SettlementResponse struct {
	OrderID          string          `json:"order_id"`
	Mode             string          `json:"mode"`
	DiagnosticAmount decimal.Decimal `json:"diagnostic_amount"`
	AdvancePaid      decimal.Decimal `json:"advance_paid"`
	Amount           decimal.Decimal `json:"amount"`
	SuggestedPayment decimal.Decimal `json:"suggested_payment"`
}

// RefundDecisionRequest body para POST /api/work-orders/:id/settlement/refund-decision.
type RefundDecisionRequest struct {
	Decision string          `json:"decision"` // REFUND | RETAIN
	Amount   decimal.Decimal `json:"amount"`
}

// RefundDecisionResponse nota de auditoría que quedó en el informe.
type RefundDecisionResponse struct {
	OrderID     string `json:"order_id"`
	Note        string `json:"note"`
	IsFullyPaid bool   `json:"is_fully_paid"`
}

// AddVoucherRequest body para POST /api/work-orders/:id/vouchers.
type AddVoucherRequest struct {
	Type   string           `json:"type"` // PHYSICAL_RECEIPT | E_RECEIPT | E_INVOICE
	Number string           `json:"number"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// VoucherListResponse comprobantes del informe tras la operación.
type VoucherListResponse struct {
	OrderID  string            `json:"order_id"`
	Vouchers []VoucherResponse `json:"vouchers"`
}

// OrderIncomeResponse cobros de un informe dentro del mes.
type OrderIncomeResponse struct {
	OrderID          string          `json:"order_id"`
	NetPayable       decimal.Decimal `json:"net_payable"`
	CollectedInMonth decimal.Decimal `json:"collected_in_month"`
	Balance          decimal.Decimal `json:"balance"`
	IsFullyPaid      bool            `json:"is_fully_paid"`
}

// MethodIncomeResponse total cobrado por método de pago.
type MethodIncomeResponse struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// IncomeReportResponse reporte mensual de ingresos (GET /api/reports/income).
type IncomeReportResponse struct {
	Year           int                    `json:"year"`
	Month          int                    `json:"month"`
	Currency       string                 `json:"currency"`
	TotalCollected decimal.Decimal        `json:"total_collected"`
	Orders         []OrderIncomeResponse  `json:"orders"`
	ByMethod       []MethodIncomeResponse `json:"by_method"`
}
