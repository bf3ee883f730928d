package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Taller-api/internal/domain"
)

// DefaultBatchTolerance margen de redondeo al validar el lote contra el saldo.
var DefaultBatchTolerance = decimal.RequireFromString("0.1")

// MethodOther método que exige detallar el submétodo.
const MethodOther = "Other"

// BatchMode modo de apertura del lote.
type BatchMode string

const (
	BatchStandard       BatchMode = "STANDARD"
	BatchDiagnosticOnly BatchMode = "DIAGNOSTIC_ONLY"
)

// BatchState estado del lote.
type BatchState string

const (
	BatchEmpty        BatchState = "EMPTY"
	BatchAccumulating BatchState = "ACCUMULATING"
	BatchCommitting   BatchState = "COMMITTING"
	BatchClosed       BatchState = "CLOSED"
	BatchCancelled    BatchState = "CANCELLED"
)

// BatchEntry pago pendiente de confirmar.
type BatchEntry struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	SubMethod string          `json:"sub_method,omitempty"`
}

// LedgerMethod método tal como queda en el libro.
func (e BatchEntry) LedgerMethod() string {
	if e.Method == MethodOther && e.SubMethod != "" {
		return e.Method + " - " + e.SubMethod
	}
	return e.Method
}

// BatchCommitError confirmación parcial: los primeros Committed pagos quedaron
// guardados y el resto sigue pendiente.
type BatchCommitError struct {
	Committed int
	Total     int
	Err       error
}

func (e *BatchCommitError) Error() string {
	return fmt.Sprintf("lote de pagos: %d de %d confirmados: %v", e.Committed, e.Total, e.Err)
}

func (e *BatchCommitError) Unwrap() error { return e.Err }

// BatchSession lote transitorio de pagos, validado contra el saldo ya
// confirmado antes de escribir en el libro.
type BatchSession struct {
	mode      BatchMode
	state     BatchState
	balance   decimal.Decimal
	tolerance decimal.Decimal
	entries   []BatchEntry
	pending   decimal.Decimal
}

// BatchOption personaliza el lote.
type BatchOption func(*BatchSession)

// WithTolerance cambia el margen de redondeo.
func WithTolerance(t decimal.Decimal) BatchOption {
	return func(s *BatchSession) {
		if !t.IsNegative() {
			s.tolerance = t
		}
	}
}

// NewBatchSession abre un lote contra el saldo confirmado.
func NewBatchSession(balance decimal.Decimal, mode BatchMode, opts ...BatchOption) *BatchSession {
	if mode == "" {
		mode = BatchStandard
	}
	s := &BatchSession{
		mode:      mode,
		state:     BatchEmpty,
		balance:   balance,
		tolerance: DefaultBatchTolerance,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *BatchSession) Mode() BatchMode { return s.mode }
func (s *BatchSession) State() BatchState { return s.state }
func (s *BatchSession) Balance() decimal.Decimal { return s.balance }
func (s *BatchSession) PendingAmount() decimal.Decimal { return s.pending }

// Entries copia de los pagos pendientes en orden.
func (s *BatchSession) Entries() []BatchEntry {
	out := make([]BatchEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// RunningTotal suma de los pagos pendientes.
func (s *BatchSession) RunningTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.entries {
		total = total.Add(e.Amount)
	}
	return total
}

func (s *BatchSession) open() bool {
	return s.state == BatchEmpty || s.state == BatchAccumulating
}

// Add agrega un pago al lote si cabe en el saldo más la tolerancia.
func (s *BatchSession) Add(amount decimal.Decimal, method, subMethod string) (BatchEntry, error) {
	if !s.open() {
		return BatchEntry{}, domain.ErrBatchClosed
	}
	if !amount.IsPositive() {
		return BatchEntry{}, domain.ErrInvalidAmount
	}
	method = strings.TrimSpace(method)
	subMethod = strings.TrimSpace(subMethod)
	if method == "" {
		return BatchEntry{}, domain.ErrMissingMethod
	}
	if method == MethodOther && subMethod == "" {
		return BatchEntry{}, domain.ErrMissingSubMethod
	}
	if s.RunningTotal().Add(amount).GreaterThan(s.balance.Add(s.tolerance)) {
		return BatchEntry{}, domain.ErrBatchExceedsBalance
	}
	e := BatchEntry{ID: uuid.New().String(), Amount: amount, Method: method, SubMethod: subMethod}
	s.entries = append(s.entries, e)
	s.state = BatchAccumulating
	s.pending = decimal.Zero
	return e, nil
}

// Remove quita un pago pendiente. No toca el libro.
func (s *BatchSession) Remove(id string) error {
	if !s.open() {
		return domain.ErrBatchClosed
	}
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			if len(s.entries) == 0 {
				s.state = BatchEmpty
			}
			return nil
		}
	}
	return domain.ErrBatchEntryNotFound
}

// AutoFill sugiere como monto pendiente lo que falta para cubrir el saldo.
func (s *BatchSession) AutoFill() decimal.Decimal {
	s.pending = clampZero(s.balance.Sub(s.RunningTotal()))
	return s.pending
}

// Cancel descarta el lote sin efectos.
func (s *BatchSession) Cancel() error {
	if s.state == BatchClosed {
		return domain.ErrBatchClosed
	}
	s.entries = nil
	s.pending = decimal.Zero
	s.state = BatchCancelled
	return nil
}

// Commit confirma los pagos en orden, uno por uno, mediante appendFn. Si uno
// falla, los anteriores quedan confirmados, salen del lote y se descuentan del
// saldo; el lote vuelve a ACCUMULATING con el resto y se devuelve
// *BatchCommitError. Un lote de solo diagnóstico con saldo cero se puede
// confirmar vacío para cerrar el informe.
func (s *BatchSession) Commit(ctx context.Context, appendFn func(context.Context, BatchEntry) error) (int, error) {
	if !s.open() {
		return 0, domain.ErrBatchClosed
	}
	if len(s.entries) == 0 {
		if s.mode == BatchDiagnosticOnly && !s.balance.IsPositive() {
			s.state = BatchClosed
			return 0, nil
		}
		return 0, domain.ErrEmptyBatch
	}

	s.state = BatchCommitting
	total := len(s.entries)
	committed := 0
	for _, e := range s.entries {
		err := ctx.Err()
		if err == nil {
			err = appendFn(ctx, e)
		}
		if err != nil {
			s.settle(committed)
			s.state = BatchAccumulating
			return committed, &BatchCommitError{Committed: committed, Total: total, Err: err}
		}
		committed++
	}
	s.settle(committed)
	s.state = BatchClosed
	return committed, nil
}

func (s *BatchSession) settle(n int) {
	for _, e := range s.entries[:n] {
		s.balance = s.balance.Sub(e.Amount)
	}
	s.entries = append([]BatchEntry(nil), s.entries[n:]...)
}
