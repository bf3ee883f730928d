package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Taller-api/internal/domain"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
)

// SettlementState estado del cobro solo de diagnóstico.
type SettlementState string

const (
	SettlementInit         SettlementState = "INIT"
	SettlementNeedsPayment SettlementState = "NEEDS_PAYMENT"
	SettlementOverpaid     SettlementState = "OVERPAID"
	SettlementResolved     SettlementState = "RESOLVED"
)

// RefundDecision qué hacer con el adelanto excedente.
type RefundDecision string

const (
	DecisionRefund RefundDecision = "REFUND"
	DecisionRetain RefundDecision = "RETAIN"
)

// Valid indica si la decisión es conocida.
func (d RefundDecision) Valid() bool {
	return d == DecisionRefund || d == DecisionRetain
}

// refundMatchTolerance diferencia admitida entre el monto informado por la
// caja y el excedente recalculado.
var refundMatchTolerance = decimal.RequireFromString("0.01")

// Settlement cierre de un informe en el que solo se cobra el diagnóstico
// (por ejemplo, el cliente no aceptó la reparación).
type Settlement struct {
	State            SettlementState `json:"state"`
	DiagnosticAmount decimal.Decimal `json:"diagnostic_amount"`
	AdvancePaid      decimal.Decimal `json:"advance_paid"`
	// Amount es lo que falta cobrar en NEEDS_PAYMENT o lo que excede en OVERPAID.
	Amount   decimal.Decimal `json:"amount"`
	Decision RefundDecision  `json:"decision,omitempty"`
}

// ResolveDiagnosticOnly decide entre cobrar la diferencia o resolver un sobrepago.
// Solo aplica si el informe no está pagado y existe un diagnóstico cobrable.
func ResolveDiagnosticOnly(o *entity.WorkOrder, res Resolution) (Settlement, error) {
	s := Settlement{State: SettlementInit}
	if o == nil || o.IsFullyPaid {
		return s, domain.ErrSettlementNotApplicable
	}
	diag, ok := res.DiagnosticItem()
	if !ok || !diag.Amount.IsPositive() {
		return s, domain.ErrSettlementNotApplicable
	}
	advance := PaidTowardsSettlement(o).Amount()
	diff := diag.Amount.Sub(advance)

	s.DiagnosticAmount = diag.Amount
	s.AdvancePaid = advance
	if diff.IsNegative() {
		s.State = SettlementOverpaid
		s.Amount = diff.Abs()
	} else {
		s.State = SettlementNeedsPayment
		s.Amount = diff
	}
	return s, nil
}

// PaymentSession abre el lote en modo solo diagnóstico con el monto ya sugerido.
func (s Settlement) PaymentSession(opts ...BatchOption) (*BatchSession, error) {
	if s.State != SettlementNeedsPayment {
		return nil, domain.ErrSettlementNotApplicable
	}
	session := NewBatchSession(s.Amount, BatchDiagnosticOnly, opts...)
	session.AutoFill()
	return session, nil
}

// Decide registra la decisión sobre el excedente y devuelve la nota de auditoría.
func (s *Settlement) Decide(decision RefundDecision, amount decimal.Decimal, currency string, at time.Time) (string, error) {
	if s.State != SettlementOverpaid {
		return "", domain.ErrSettlementNotApplicable
	}
	if !decision.Valid() {
		return "", domain.ErrInvalidDecision
	}
	if !amount.IsPositive() || amount.Sub(s.Amount).Abs().GreaterThan(refundMatchTolerance) {
		return "", domain.ErrInvalidAmount
	}
	s.Decision = decision
	s.State = SettlementResolved
	return SettlementNote(decision, s.Amount, currency, at), nil
}

// SettlementNote texto que queda en el informe. No genera movimiento en el libro.
func SettlementNote(decision RefundDecision, amount decimal.Decimal, currency string, at time.Time) string {
	stamp := at.Format("2006-01-02 15:04")
	value := amount.StringFixed(2)
	if currency != "" {
		value = currency + " " + value
	}
	switch decision {
	case DecisionRefund:
		return fmt.Sprintf("[%s] Cobro solo de diagnóstico: se devolvió %s al cliente por adelanto excedente.", stamp, value)
	default:
		return fmt.Sprintf("[%s] Cobro solo de diagnóstico: se retiene %s como saldo a favor del cliente.", stamp, value)
	}
}
