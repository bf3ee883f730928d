package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Taller-api/internal/domain"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
)

// AdvanceSource origen del monto pagado.
type AdvanceSource string

const (
	SourceLegacySingle AdvanceSource = "legacy_single"
	SourceLedgerSum    AdvanceSource = "ledger_sum"
)

// AdvancePaid monto ya pagado por el cliente, según la fuente que corresponda:
// LegacySingle (campo único de adelanto) o LedgerSum (suma del libro de pagos).
type AdvancePaid interface {
	Amount() decimal.Decimal
	Source() AdvanceSource
}

// LegacySingle adelanto registrado en el campo antiguo advanceLegacyAmount.
type LegacySingle struct {
	Value decimal.Decimal
}

// LedgerSum suma de los pagos del libro.
type LedgerSum struct {
	Events []entity.PaymentEvent
}

func (l LegacySingle) Amount() decimal.Decimal { return l.Value }
func (LegacySingle) Source() AdvanceSource { return SourceLegacySingle }

func (l LedgerSum) Amount() decimal.Decimal {
	total := decimal.Zero
	for _, ev := range l.Events {
		total = total.Add(ev.Amount.Decimal)
	}
	return total
}
func (LedgerSum) Source() AdvanceSource { return SourceLedgerSum }

// PaidTowardsBalance precedencia para saldo y libro: en cuanto existe un pago
// en el libro, el campo antiguo deja de contar.
func PaidTowardsBalance(events []entity.PaymentEvent, legacy decimal.Decimal) AdvancePaid {
	if len(events) > 0 {
		return LedgerSum{Events: events}
	}
	return LegacySingle{Value: legacy}
}

// PaidTowardsSettlement precedencia para el cobro solo de diagnóstico: siempre
// el campo antiguo de adelanto, sin importar el libro.
func PaidTowardsSettlement(o *entity.WorkOrder) AdvancePaid {
	return LegacySingle{Value: o.AdvanceLegacyAmount.Decimal}
}

// PaymentLedger libro de pagos de un informe. Solo admite agregar.
type PaymentLedger struct {
	events []entity.PaymentEvent
	legacy decimal.Decimal
}

// NewPaymentLedger copia los eventos existentes.
func NewPaymentLedger(events []entity.PaymentEvent, legacyAdvance decimal.Decimal) *PaymentLedger {
	cp := make([]entity.PaymentEvent, len(events))
	copy(cp, events)
	return &PaymentLedger{events: cp, legacy: legacyAdvance}
}

// NewPaymentEvent valida y construye un evento de pago.
func NewPaymentEvent(amount decimal.Decimal, method string, at time.Time) (entity.PaymentEvent, error) {
	if !amount.IsPositive() {
		return entity.PaymentEvent{}, domain.ErrInvalidAmount
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return entity.PaymentEvent{}, domain.ErrMissingMethod
	}
	return entity.PaymentEvent{
		ID:        uuid.New().String(),
		Timestamp: at.UTC(),
		Amount:    entity.NewAmount(amount),
		Method:    method,
	}, nil
}

// Append agrega un evento ya validado.
func (l *PaymentLedger) Append(ev entity.PaymentEvent) error {
	if !ev.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if strings.TrimSpace(ev.Method) == "" {
		return domain.ErrMissingMethod
	}
	l.events = append(l.events, ev)
	return nil
}

// Events copia de los eventos en orden de registro.
func (l *PaymentLedger) Events() []entity.PaymentEvent {
	out := make([]entity.PaymentEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Paid monto pagado con su fuente.
func (l *PaymentLedger) Paid() AdvancePaid {
	return PaidTowardsBalance(l.events, l.legacy)
}

// TotalPaid suma del libro o, si está vacío, el adelanto antiguo.
func (l *PaymentLedger) TotalPaid() decimal.Decimal {
	return l.Paid().Amount()
}

// SignedBalance saldo con signo; negativo indica sobrepago.
func (l *PaymentLedger) SignedBalance(netPayable decimal.Decimal) decimal.Decimal {
	return netPayable.Sub(l.TotalPaid())
}

// Balance saldo para mostrar, recortado a cero.
func (l *PaymentLedger) Balance(netPayable decimal.Decimal) decimal.Decimal {
	return clampZero(l.SignedBalance(netPayable))
}

// OrderLedger agregado en memoria de un informe: se construye una vez por
// solicitud, responde consultas puras y produce los valores a persistir.
type OrderLedger struct {
	order      *entity.WorkOrder
	agg        Aggregator
	resolution Resolution
	taxIDs     TaxSet
	discount   decimal.Decimal
	payments   *PaymentLedger
}

// NewOrderLedger resuelve los ítems del informe y arma el agregado.
func NewOrderLedger(o *entity.WorkOrder, agg Aggregator) *OrderLedger {
	return &OrderLedger{
		order:      o,
		agg:        agg,
		resolution: ResolveCostItems(o),
		taxIDs:     NewTaxSet(o.TaxApplicableItemIDs),
		discount:   o.Discount.Decimal,
		payments:   NewPaymentLedger(o.PaymentLedger, o.AdvanceLegacyAmount.Decimal),
	}
}

func (l *OrderLedger) Order() *entity.WorkOrder { return l.order }
func (l *OrderLedger) Resolution() Resolution { return l.resolution }
func (l *OrderLedger) Items() []CostItem { return l.resolution.Items }
func (l *OrderLedger) TaxIDs() []string { return l.taxIDs.IDs() }
func (l *OrderLedger) Discount() decimal.Decimal { return l.discount }
func (l *OrderLedger) Payments() *PaymentLedger { return l.payments }
func (l *OrderLedger) Paid() AdvancePaid { return l.payments.Paid() }
func (l *OrderLedger) TotalPaid() decimal.Decimal { return l.payments.TotalPaid() }
func (l *OrderLedger) NetPayable() decimal.Decimal { return l.Totals().NetPayable }

// Totals recalcula los totales con el estado actual del agregado.
func (l *OrderLedger) Totals() Totals {
	return l.agg.Compute(l.resolution.Items, l.taxIDs, l.discount)
}

// SignedBalance saldo con signo contra el neto a pagar.
func (l *OrderLedger) SignedBalance() decimal.Decimal {
	return l.payments.SignedBalance(l.NetPayable())
}

// Balance saldo recortado a cero; es el valor que se muestra y se persiste.
func (l *OrderLedger) Balance() decimal.Decimal {
	return l.payments.Balance(l.NetPayable())
}

// ToggleTax invierte el IGV de un ítem. Se acepta un id ausente de la lista
// resuelta solo si ya estaba en el conjunto, para poder limpiar ids huérfanos.
func (l *OrderLedger) ToggleTax(itemID string) (bool, error) {
	if _, ok := l.resolution.Find(itemID); !ok && !l.taxIDs.Has(itemID) {
		return false, domain.ErrUnknownItem
	}
	return l.taxIDs.Toggle(itemID), nil
}

// SetDiscount fija el descuento. Un valor negativo se ignora y devuelve false.
func (l *OrderLedger) SetDiscount(d decimal.Decimal) bool {
	if d.IsNegative() {
		return false
	}
	l.discount = d
	return true
}

// RecordPayment registra un pago ya validado en el agregado.
func (l *OrderLedger) RecordPayment(ev entity.PaymentEvent) error {
	return l.payments.Append(ev)
}
