package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Taller-api/internal/application/dto"
	"github.com/jhoicas/Taller-api/internal/domain"
	dbilling "github.com/jhoicas/Taller-api/internal/domain/billing"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
	"github.com/jhoicas/Taller-api/internal/domain/repository"
)

// UseCase operaciones de cobro sobre un informe. Cada operación lee el
// documento una vez, arma el agregado en memoria y persiste un único parche
// con control de versión.
type UseCase struct {
	repo      repository.WorkOrderRepository
	agg       dbilling.Aggregator
	tolerance decimal.Decimal
	currency  string
	now       Clock
	log       zerolog.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.WorkOrderRepository, cfg Config, log zerolog.Logger, opts ...Option) *UseCase {
	tolerance := cfg.BatchTolerance
	if tolerance.IsNegative() {
		tolerance = dbilling.DefaultBatchTolerance
	}
	uc := &UseCase{
		repo:      repo,
		agg:       dbilling.NewAggregator(cfg.TaxRate),
		tolerance: tolerance,
		currency:  cfg.Currency,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// GetSummary devuelve la vista de cobro sin modificar nada.
func (uc *UseCase) GetSummary(ctx context.Context, orderID string) (*dto.BillingSummaryResponse, error) {
	l, err := uc.load(ctx, orderID, 0)
	if err != nil {
		return nil, err
	}
	out := uc.summary(l)
	return &out, nil
}

// ToggleItemTax invierte el IGV de un ítem y guarda ids, neto y saldo en un solo parche.
// Si el parche falla se deshace el cambio en memoria y se devuelve el error.
func (uc *UseCase) ToggleItemTax(ctx context.Context, orderID string, in dto.ToggleTaxRequest) (*dto.BillingSummaryResponse, error) {
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return nil, domain.ErrUnknownItem
	}
	l, err := uc.load(ctx, orderID, in.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	taxed, err := l.ToggleTax(itemID)
	if err != nil {
		return nil, err
	}

	taxIDs := l.TaxIDs()
	net := l.NetPayable()
	balance := l.Balance()
	version, err := uc.repo.Patch(ctx, l.Order().ID, repository.WorkOrderPatch{
		ExpectedVersion:      l.Order().Version,
		TaxApplicableItemIDs: &taxIDs,
		NetPayable:           &net,
		Balance:              &balance,
	})
	if err != nil {
		_, _ = l.ToggleTax(itemID)
		uc.log.Error().Err(err).Str("order_id", orderID).Str("item_id", itemID).Msg("toggle tax: patch failed")
		return nil, persistErr(err)
	}

	o := l.Order()
	o.Version = version
	o.TaxApplicableItemIDs = taxIDs
	o.NetPayable = entity.NewAmount(net)
	o.Balance = entity.NewAmount(balance)
	uc.log.Info().Str("order_id", orderID).Str("item_id", itemID).Bool("taxed", taxed).Msg("tax toggled")

	out := uc.summary(l)
	return &out, nil
}

// SetDiscount fija el descuento plano. Un monto negativo no cambia nada y
// devuelve la vista actual.
func (uc *UseCase) SetDiscount(ctx context.Context, orderID string, in dto.SetDiscountRequest) (*dto.BillingSummaryResponse, error) {
	l, err := uc.load(ctx, orderID, in.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	if !l.SetDiscount(in.Amount) {
		uc.log.Debug().Str("order_id", orderID).Str("amount", in.Amount.String()).Msg("negative discount ignored")
		out := uc.summary(l)
		return &out, nil
	}

	discount := l.Discount()
	net := l.NetPayable()
	balance := l.Balance()
	version, err := uc.repo.Patch(ctx, l.Order().ID, repository.WorkOrderPatch{
		ExpectedVersion: l.Order().Version,
		Discount:        &discount,
		NetPayable:      &net,
		Balance:         &balance,
	})
	if err != nil {
		uc.log.Error().Err(err).Str("order_id", orderID).Msg("set discount: patch failed")
		return nil, persistErr(err)
	}

	o := l.Order()
	o.Version = version
	o.Discount = entity.NewAmount(discount)
	o.NetPayable = entity.NewAmount(net)
	o.Balance = entity.NewAmount(balance)

	out := uc.summary(l)
	return &out, nil
}

// AppendPayment registra un pago suelto en el libro. No se valida contra el
// saldo; eso lo hace el lote.
func (uc *UseCase) AppendPayment(ctx context.Context, orderID string, in dto.PaymentRequest) (*dto.BillingSummaryResponse, error) {
	entry := dbilling.BatchEntry{
		Amount:    in.Amount,
		Method:    strings.TrimSpace(in.Method),
		SubMethod: strings.TrimSpace(in.SubMethod),
	}
	if entry.Method == dbilling.MethodOther && entry.SubMethod == "" {
		return nil, domain.ErrMissingSubMethod
	}
	ev, err := dbilling.NewPaymentEvent(entry.Amount, entry.LedgerMethod(), uc.now())
	if err != nil {
		return nil, err
	}

	l, err := uc.load(ctx, orderID, 0)
	if err != nil {
		return nil, err
	}
	if _, err := uc.appendEvent(ctx, l, ev, l.Order().Version, false); err != nil {
		return nil, err
	}
	out := uc.summary(l)
	return &out, nil
}

// CommitBatch valida todas las entradas contra el saldo confirmado y las
// registra en orden, una por una. En modo solo diagnóstico el saldo de
// referencia es la diferencia del diagnóstico y el último pago cierra el informe.
// Ante un fallo a mitad de camino devuelve *dbilling.BatchCommitError con la
// cantidad de pagos que sí quedaron registrados.
func (uc *UseCase) CommitBatch(ctx context.Context, orderID string, in dto.BatchPaymentRequest) (*dto.BatchPaymentResponse, error) {
	l, err := uc.load(ctx, orderID, in.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	var session *dbilling.BatchSession
	if in.DiagnosticOnly {
		st, err := dbilling.ResolveDiagnosticOnly(l.Order(), l.Resolution())
		if err != nil {
			return nil, err
		}
		session, err = st.PaymentSession(dbilling.WithTolerance(uc.tolerance))
		if err != nil {
			return nil, err
		}
	} else {
		if len(in.Entries) == 0 {
			return nil, domain.ErrEmptyBatch
		}
		session = dbilling.NewBatchSession(l.Balance(), dbilling.BatchStandard, dbilling.WithTolerance(uc.tolerance))
	}
	for i, e := range in.Entries {
		if _, err := session.Add(e.Amount, e.Method, e.SubMethod); err != nil {
			return nil, fmt.Errorf("entrada %d: %w", i+1, err)
		}
	}

	total := len(session.Entries())
	version := l.Order().Version
	closing := session.Mode() == dbilling.BatchDiagnosticOnly
	next := 0
	committed, err := session.Commit(ctx, func(ctx context.Context, e dbilling.BatchEntry) error {
		ev, err := dbilling.NewPaymentEvent(e.Amount, e.LedgerMethod(), uc.now())
		if err != nil {
			return err
		}
		next++
		v, err := uc.appendEvent(ctx, l, ev, version, closing && next == total)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if err == nil && total == 0 {
		// solo diagnóstico sin diferencia que cobrar: cierre sin pagos
		version, err = uc.closeOrder(ctx, l, version, nil)
	}
	if err != nil {
		var partial *dbilling.BatchCommitError
		if errors.As(err, &partial) {
			uc.log.Warn().Err(partial.Err).Str("order_id", orderID).
				Int("committed", partial.Committed).Int("total", partial.Total).
				Msg("batch commit interrupted")
		}
		return nil, err
	}

	uc.log.Info().Str("order_id", orderID).Int("committed", committed).
		Str("mode", string(session.Mode())).Msg("batch committed")
	return &dto.BatchPaymentResponse{
		CommittedCount: committed,
		Total:          total,
		Balance:        l.Order().Balance.Decimal,
		IsFullyPaid:    l.Order().IsFullyPaid,
		Version:        version,
	}, nil
}

// ResolveDiagnosticOnly evalúa el cobro solo de diagnóstico sin persistir.
func (uc *UseCase) ResolveDiagnosticOnly(ctx context.Context, orderID string) (*dto.SettlementResponse, error) {
	l, err := uc.load(ctx, orderID, 0)
	if err != nil {
		return nil, err
	}
	st, err := dbilling.ResolveDiagnosticOnly(l.Order(), l.Resolution())
	if err != nil {
		return nil, err
	}
	out := &dto.SettlementResponse{
		OrderID:          l.Order().ID,
		Mode:             string(st.State),
		DiagnosticAmount: st.DiagnosticAmount,
		AdvancePaid:      st.AdvancePaid,
		Amount:           st.Amount,
		SuggestedPayment: decimal.Zero,
	}
	if st.State == dbilling.SettlementNeedsPayment {
		out.SuggestedPayment = st.Amount
	}
	return out, nil
}

// FinalizeRefundDecision registra la decisión sobre el adelanto excedente:
// deja la nota y marca el informe como pagado en un solo parche. No toca el libro.
func (uc *UseCase) FinalizeRefundDecision(ctx context.Context, orderID string, in dto.RefundDecisionRequest) (*dto.RefundDecisionResponse, error) {
	decision := dbilling.RefundDecision(strings.ToUpper(strings.TrimSpace(in.Decision)))
	if !decision.Valid() {
		return nil, domain.ErrInvalidDecision
	}
	l, err := uc.load(ctx, orderID, 0)
	if err != nil {
		return nil, err
	}
	st, err := dbilling.ResolveDiagnosticOnly(l.Order(), l.Resolution())
	if err != nil {
		return nil, err
	}
	note, err := st.Decide(decision, in.Amount, uc.currency, uc.now())
	if err != nil {
		return nil, err
	}
	if _, err := uc.closeOrder(ctx, l, l.Order().Version, &note); err != nil {
		return nil, err
	}
	uc.log.Info().Str("order_id", orderID).Str("decision", string(decision)).
		Str("amount", st.Amount.StringFixed(2)).Msg("diagnostic-only settlement resolved")
	return &dto.RefundDecisionResponse{OrderID: l.Order().ID, Note: note, IsFullyPaid: true}, nil
}

// AddVoucher agrega un comprobante y espeja el primero en el campo antiguo.
func (uc *UseCase) AddVoucher(ctx context.Context, orderID string, in dto.AddVoucherRequest) (*dto.VoucherResponse, error) {
	v := entity.Voucher{
		Type:   entity.VoucherType(strings.ToUpper(strings.TrimSpace(in.Type))),
		Number: in.Number,
	}
	if in.Amount != nil {
		a := entity.NewAmount(*in.Amount)
		v.Amount = &a
	}
	l, err := uc.load(ctx, orderID, 0)
	if err != nil {
		return nil, err
	}
	list, added, err := dbilling.AddVoucher(l.Order().Vouchers, v)
	if err != nil {
		return nil, err
	}
	if err := uc.saveVouchers(ctx, l, list); err != nil {
		return nil, err
	}
	out := toVoucherResponse(added)
	return &out, nil
}

// RemoveVoucher quita un comprobante por id.
func (uc *UseCase) RemoveVoucher(ctx context.Context, orderID, voucherID string) (*dto.VoucherListResponse, error) {
	l, err := uc.load(ctx, orderID, 0)
	if err != nil {
		return nil, err
	}
	list, err := dbilling.RemoveVoucher(l.Order().Vouchers, voucherID)
	if err != nil {
		return nil, err
	}
	if err := uc.saveVouchers(ctx, l, list); err != nil {
		return nil, err
	}
	return &dto.VoucherListResponse{OrderID: l.Order().ID, Vouchers: toVoucherResponses(list)}, nil
}

func (uc *UseCase) saveVouchers(ctx context.Context, l *dbilling.OrderLedger, list []entity.Voucher) error {
	version, err := uc.repo.Patch(ctx, l.Order().ID, repository.WorkOrderPatch{
		ExpectedVersion: l.Order().Version,
		Vouchers:        &list,
		LegacyVoucher:   dbilling.LegacyVoucher(list),
	})
	if err != nil {
		uc.log.Error().Err(err).Str("order_id", l.Order().ID).Msg("vouchers: patch failed")
		return persistErr(err)
	}
	o := l.Order()
	o.Version = version
	o.Vouchers = list
	o.LegacyVoucher = dbilling.LegacyVoucher(list)
	return nil
}

// appendEvent agrega un pago al libro y guarda neto, saldo y, si el saldo con
// signo llegó a cero o menos (o se pide cierre), la marca de pagado.
func (uc *UseCase) appendEvent(ctx context.Context, l *dbilling.OrderLedger, ev entity.PaymentEvent, expected int64, closing bool) (int64, error) {
	if err := l.RecordPayment(ev); err != nil {
		return 0, err
	}
	net := l.NetPayable()
	balance := l.Balance()
	paid := closing || !l.SignedBalance().IsPositive()
	if closing {
		balance = decimal.Zero
	}
	patch := repository.WorkOrderPatch{
		ExpectedVersion: expected,
		NetPayable:      &net,
		Balance:         &balance,
		AppendPayments:  []entity.PaymentEvent{ev},
	}
	if paid {
		patch.IsFullyPaid = &paid
	}
	version, err := uc.repo.Patch(ctx, l.Order().ID, patch)
	if err != nil {
		uc.log.Error().Err(err).Str("order_id", l.Order().ID).Str("payment_id", ev.ID).Msg("append payment: patch failed")
		return 0, persistErr(err)
	}

	o := l.Order()
	o.Version = version
	o.PaymentLedger = append(o.PaymentLedger, ev)
	o.NetPayable = entity.NewAmount(net)
	o.Balance = entity.NewAmount(balance)
	if paid {
		o.IsFullyPaid = true
	}
	uc.log.Info().Str("order_id", o.ID).Str("payment_id", ev.ID).
		Str("amount", ev.Amount.StringFixed(2)).Str("method", ev.Method).Msg("payment recorded")
	return version, nil
}

// closeOrder marca el informe como pagado con saldo cero, opcionalmente con nota.
// Si falla, la marca queda sin poner y el flujo se puede repetir.
func (uc *UseCase) closeOrder(ctx context.Context, l *dbilling.OrderLedger, expected int64, note *string) (int64, error) {
	paid := true
	zero := decimal.Zero
	version, err := uc.repo.Patch(ctx, l.Order().ID, repository.WorkOrderPatch{
		ExpectedVersion: expected,
		Balance:         &zero,
		IsFullyPaid:     &paid,
		SettlementNote:  note,
	})
	if err != nil {
		uc.log.Error().Err(err).Str("order_id", l.Order().ID).Msg("close order: patch failed")
		return 0, persistErr(err)
	}
	o := l.Order()
	o.Version = version
	o.Balance = entity.NewAmount(zero)
	o.IsFullyPaid = true
	if note != nil {
		o.SettlementNote = *note
	}
	return version, nil
}

// load lee el informe y arma el agregado. expectedVersion distinto de cero
// exige que el documento no haya cambiado desde que el cliente lo leyó.
func (uc *UseCase) load(ctx context.Context, orderID string, expectedVersion int64) (*dbilling.OrderLedger, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrInvalidInput
	}
	o, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, persistErr(err)
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	if expectedVersion != 0 && o.Version != expectedVersion {
		return nil, fmt.Errorf("work order %s version %d (esperada %d): %w", orderID, o.Version, expectedVersion, domain.ErrConflict)
	}
	return dbilling.NewOrderLedger(o, uc.agg), nil
}

// persistErr conserva conflicto y no encontrado; el resto se reporta como
// error de persistencia.
func persistErr(err error) error {
	if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}
