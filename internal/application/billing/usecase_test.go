package billing_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Taller-api/internal/application/billing"
	"github.com/jhoicas/Taller-api/internal/application/dto"
	"github.com/jhoicas/Taller-api/internal/domain"
	dbilling "github.com/jhoicas/Taller-api/internal/domain/billing"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
	"github.com/jhoicas/Taller-api/internal/domain/repository"
)

var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amt(s string) entity.Amount { return entity.NewAmount(dec(s)) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "esperado %s, obtenido %s", want, got.String())
}

func newUseCase(repo repository.WorkOrderRepository) *billing.UseCase {
	cfg := billing.Config{
		TaxRate:        dec("0.18"),
		BatchTolerance: dec("0.1"),
		Currency:       "PEN",
	}
	return billing.NewUseCase(repo, cfg, zerolog.Nop(), billing.WithClock(func() time.Time { return fixedNow }))
}

// reparación cotizada: el diagnóstico queda absorbido, neto 100.
func repairOrder() *entity.WorkOrder {
	return &entity.WorkOrder{
		ID:            "OT-100",
		DiagnosticFee: amt("30"),
		MainServices:  []entity.MainService{{ServiceName: "Reparación de Placa", Amount: amt("100")}},
		LegacyExtraServices: []entity.ExtraService{
			{ID: "x-1", Description: "Limpieza", Amount: amt("20")},
		},
	}
}

// el cliente rechazó la reparación: solo se cobra el diagnóstico (30) y
// había dejado 150 de adelanto en el campo antiguo.
func rejectedRepairOrder() *entity.WorkOrder {
	return &entity.WorkOrder{
		ID:            "OT-200",
		DiagnosticFee: amt("30"),
		MainServices:  []entity.MainService{{ServiceName: "Reparación de Placa", Amount: amt("100")}},
		AreaHistory: map[string][]entity.AreaEntry{
			entity.AreaTesting: {{ChargeRepair: entity.DecisionNo}},
		},
		AdvanceLegacyAmount: amt("150"),
	}
}

func TestGetSummary(t *testing.T) {
	uc := newUseCase(newMemRepo(repairOrder()))

	s, err := uc.GetSummary(context.Background(), "OT-100")
	require.NoError(t, err)

	require.Len(t, s.Items, 2)
	assert.Equal(t, "main-0", s.Items[0].ID)
	assert.Equal(t, "x-1", s.Items[1].ID)
	assertDec(t, "120", s.NetPayable)
	assertDec(t, "120", s.Balance)
	assertDec(t, "120", s.SuggestedPayment)
	assertDec(t, "100", s.PerCategory.MainService)
	assertDec(t, "20", s.PerCategory.Extra)
	assert.Equal(t, string(dbilling.SourceLegacySingle), s.PaidSource)
	assert.Equal(t, int64(1), s.Version)
	assert.Equal(t, "PEN", s.Currency)
}

func TestGetSummary_NotFound(t *testing.T) {
	uc := newUseCase(newMemRepo())

	_, err := uc.GetSummary(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.GetSummary(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetSummary_ReadFailureIsPersistenceError(t *testing.T) {
	repo := newMemRepo(repairOrder())
	repo.getErr = errors.New("connection refused")
	uc := newUseCase(repo)

	_, err := uc.GetSummary(context.Background(), "OT-100")
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestToggleItemTax_TwiceRestoresOriginal(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)
	ctx := context.Background()

	s, err := uc.ToggleItemTax(ctx, "OT-100", dto.ToggleTaxRequest{ItemID: "main-0"})
	require.NoError(t, err)
	assertDec(t, "18", s.TotalTax)
	assertDec(t, "138", s.NetPayable)
	assert.Equal(t, []string{"main-0"}, s.TaxApplicableIDs)

	stored := repo.stored("OT-100")
	assert.Equal(t, []string{"main-0"}, stored.TaxApplicableItemIDs)
	assertDec(t, "138", stored.NetPayable.Decimal)
	assertDec(t, "138", stored.Balance.Decimal)

	s, err = uc.ToggleItemTax(ctx, "OT-100", dto.ToggleTaxRequest{ItemID: "main-0", ExpectedVersion: s.Version})
	require.NoError(t, err)
	assert.Empty(t, s.TaxApplicableIDs)
	assertDec(t, "120", s.NetPayable)
	assert.Empty(t, repo.stored("OT-100").TaxApplicableItemIDs)
	assert.Len(t, repo.patches, 2)
}

func TestToggleItemTax_UnknownItem(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)

	_, err := uc.ToggleItemTax(context.Background(), "OT-100", dto.ToggleTaxRequest{ItemID: "no-existe"})
	assert.ErrorIs(t, err, domain.ErrUnknownItem)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, repo.patches)
}

func TestToggleItemTax_PatchFailureLeavesStoreUntouched(t *testing.T) {
	repo := newMemRepo(repairOrder())
	repo.failPatch = func(int, repository.WorkOrderPatch) error { return errors.New("write rejected") }
	uc := newUseCase(repo)

	_, err := uc.ToggleItemTax(context.Background(), "OT-100", dto.ToggleTaxRequest{ItemID: "main-0"})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	assert.Empty(t, repo.stored("OT-100").TaxApplicableItemIDs)
	s, err := uc.GetSummary(context.Background(), "OT-100")
	require.NoError(t, err)
	assertDec(t, "120", s.NetPayable)
}

func TestToggleItemTax_StaleVersion(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)
	ctx := context.Background()

	_, err := uc.SetDiscount(ctx, "OT-100", dto.SetDiscountRequest{Amount: dec("5")})
	require.NoError(t, err)

	// el cliente todavía tiene la versión 1
	_, err = uc.ToggleItemTax(ctx, "OT-100", dto.ToggleTaxRequest{ItemID: "main-0", ExpectedVersion: 1})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, repo.stored("OT-100").TaxApplicableItemIDs)
}

func TestSetDiscount(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)
	ctx := context.Background()

	s, err := uc.SetDiscount(ctx, "OT-100", dto.SetDiscountRequest{Amount: dec("20")})
	require.NoError(t, err)
	assertDec(t, "100", s.NetPayable)
	assertDec(t, "20", repo.stored("OT-100").Discount.Decimal)
	assertDec(t, "100", repo.stored("OT-100").Balance.Decimal)

	// negativo: no hace nada
	s, err = uc.SetDiscount(ctx, "OT-100", dto.SetDiscountRequest{Amount: dec("-5")})
	require.NoError(t, err)
	assertDec(t, "100", s.NetPayable)
	assert.Len(t, repo.patches, 1)
}

func TestAppendPayment_BalanceDropsByAmount(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)
	ctx := context.Background()

	s, err := uc.AppendPayment(ctx, "OT-100", dto.PaymentRequest{Amount: dec("20.50"), Method: "Cash"})
	require.NoError(t, err)
	assertDec(t, "99.5", s.Balance)
	assert.Equal(t, string(dbilling.SourceLedgerSum), s.PaidSource)

	before := s.Balance
	s, err = uc.AppendPayment(ctx, "OT-100", dto.PaymentRequest{Amount: dec("9.25"), Method: dbilling.MethodOther, SubMethod: "Plin"})
	require.NoError(t, err)
	assert.True(t, before.Sub(dec("9.25")).Equal(s.Balance))

	stored := repo.stored("OT-100")
	require.Len(t, stored.PaymentLedger, 2)
	assert.Equal(t, "Cash", stored.PaymentLedger[0].Method)
	assert.Equal(t, "Other - Plin", stored.PaymentLedger[1].Method)
	assert.True(t, fixedNow.Equal(stored.PaymentLedger[1].Timestamp))
	assertDec(t, "90.25", stored.Balance.Decimal)
	assert.False(t, stored.IsFullyPaid)
}

func TestAppendPayment_Validation(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)
	ctx := context.Background()

	_, err := uc.AppendPayment(ctx, "OT-100", dto.PaymentRequest{Amount: dec("0"), Method: "Cash"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = uc.AppendPayment(ctx, "OT-100", dto.PaymentRequest{Amount: dec("10"), Method: " "})
	assert.ErrorIs(t, err, domain.ErrMissingMethod)
	_, err = uc.AppendPayment(ctx, "OT-100", dto.PaymentRequest{Amount: dec("10"), Method: dbilling.MethodOther})
	assert.ErrorIs(t, err, domain.ErrMissingSubMethod)
	assert.Empty(t, repo.patches)
}

func TestAppendPayment_FullPaymentClosesOrder(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)

	s, err := uc.AppendPayment(context.Background(), "OT-100", dto.PaymentRequest{Amount: dec("120"), Method: "Yape"})
	require.NoError(t, err)
	assert.True(t, s.IsFullyPaid)
	assertDec(t, "0", s.Balance)
	assert.True(t, repo.stored("OT-100").IsFullyPaid)
}

func TestCommitBatch_AppendsInOrder(t *testing.T) {
	o := repairOrder()
	o.LegacyExtraServices = nil
	o.MainServices[0].Amount = amt("80")
	repo := newMemRepo(o)
	uc := newUseCase(repo)

	out, err := uc.CommitBatch(context.Background(), "OT-100", dto.BatchPaymentRequest{
		Entries: []dto.PaymentRequest{
			{Amount: dec("50"), Method: "Cash"},
			{Amount: dec("30"), Method: "Yape"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.CommittedCount)
	assertDec(t, "0", out.Balance)
	assert.True(t, out.IsFullyPaid)

	stored := repo.stored("OT-100")
	require.Len(t, stored.PaymentLedger, 2)
	assert.Equal(t, "Cash", stored.PaymentLedger[0].Method)
	assert.Equal(t, "Yape", stored.PaymentLedger[1].Method)
	assertDec(t, "0", stored.Balance.Decimal)
	assert.Equal(t, out.Version, int64(3))
}

func TestCommitBatch_RejectsOverBalance(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)

	_, err := uc.CommitBatch(context.Background(), "OT-100", dto.BatchPaymentRequest{
		Entries: []dto.PaymentRequest{
			{Amount: dec("100"), Method: "Cash"},
			{Amount: dec("20.2"), Method: "Yape"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrBatchExceedsBalance)
	assert.True(t, strings.HasPrefix(err.Error(), "entrada 2"))
	assert.Empty(t, repo.patches)

	_, err = uc.CommitBatch(context.Background(), "OT-100", dto.BatchPaymentRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)
}

func TestCommitBatch_PartialFailureKeepsPrefix(t *testing.T) {
	repo := newMemRepo(repairOrder())
	repo.failPatch = func(n int, _ repository.WorkOrderPatch) error {
		if n == 2 {
			return errors.New("timeout")
		}
		return nil
	}
	uc := newUseCase(repo)

	_, err := uc.CommitBatch(context.Background(), "OT-100", dto.BatchPaymentRequest{
		Entries: []dto.PaymentRequest{
			{Amount: dec("40"), Method: "Cash"},
			{Amount: dec("40"), Method: "Yape"},
			{Amount: dec("40"), Method: "Card"},
		},
	})
	var partial *dbilling.BatchCommitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Committed)
	assert.Equal(t, 3, partial.Total)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	stored := repo.stored("OT-100")
	require.Len(t, stored.PaymentLedger, 1)
	assert.Equal(t, "Cash", stored.PaymentLedger[0].Method)
	assertDec(t, "80", stored.Balance.Decimal)

	// reintento solo del resto, contra el saldo ya actualizado
	repo.failPatch = nil
	out, err := uc.CommitBatch(context.Background(), "OT-100", dto.BatchPaymentRequest{
		Entries: []dto.PaymentRequest{
			{Amount: dec("40"), Method: "Yape"},
			{Amount: dec("40"), Method: "Card"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.CommittedCount)
	assert.True(t, out.IsFullyPaid)
}

func TestCommitBatch_CancelledContext(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.CommitBatch(ctx, "OT-100", dto.BatchPaymentRequest{
		Entries: []dto.PaymentRequest{{Amount: dec("10"), Method: "Cash"}},
	})
	var partial *dbilling.BatchCommitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 0, partial.Committed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repo.patches)
}

func TestResolveDiagnosticOnly_Overpaid(t *testing.T) {
	uc := newUseCase(newMemRepo(rejectedRepairOrder()))

	out, err := uc.ResolveDiagnosticOnly(context.Background(), "OT-200")
	require.NoError(t, err)
	assert.Equal(t, string(dbilling.SettlementOverpaid), out.Mode)
	assertDec(t, "120", out.Amount)
	assertDec(t, "30", out.DiagnosticAmount)
	assertDec(t, "0", out.SuggestedPayment)
}

func TestResolveDiagnosticOnly_NotApplicable(t *testing.T) {
	uc := newUseCase(newMemRepo(repairOrder()))

	// la reparación absorbe el diagnóstico: no hay ítem de diagnóstico
	_, err := uc.ResolveDiagnosticOnly(context.Background(), "OT-100")
	assert.ErrorIs(t, err, domain.ErrSettlementNotApplicable)
}

func TestDiagnosticOnlyBatch_ClosesOrder(t *testing.T) {
	o := rejectedRepairOrder()
	o.AdvanceLegacyAmount = amt("10")
	repo := newMemRepo(o)
	uc := newUseCase(repo)
	ctx := context.Background()

	st, err := uc.ResolveDiagnosticOnly(ctx, "OT-200")
	require.NoError(t, err)
	assert.Equal(t, string(dbilling.SettlementNeedsPayment), st.Mode)
	assertDec(t, "20", st.SuggestedPayment)

	out, err := uc.CommitBatch(ctx, "OT-200", dto.BatchPaymentRequest{
		DiagnosticOnly: true,
		Entries:        []dto.PaymentRequest{{Amount: st.SuggestedPayment, Method: "Cash"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.CommittedCount)
	assert.True(t, out.IsFullyPaid)

	stored := repo.stored("OT-200")
	assert.True(t, stored.IsFullyPaid)
	require.Len(t, stored.PaymentLedger, 1)
	assertDec(t, "0", stored.Balance.Decimal)
	assert.Len(t, repo.patches, 1)

	// ya pagado: el flujo no vuelve a aplicar
	_, err = uc.ResolveDiagnosticOnly(ctx, "OT-200")
	assert.ErrorIs(t, err, domain.ErrSettlementNotApplicable)
}

func TestDiagnosticOnlyBatch_ClosureFailureLeavesFlagUnset(t *testing.T) {
	o := rejectedRepairOrder()
	o.AdvanceLegacyAmount = amt("10")
	repo := newMemRepo(o)
	repo.failPatch = func(int, repository.WorkOrderPatch) error { return errors.New("unavailable") }
	uc := newUseCase(repo)

	_, err := uc.CommitBatch(context.Background(), "OT-200", dto.BatchPaymentRequest{
		DiagnosticOnly: true,
		Entries:        []dto.PaymentRequest{{Amount: dec("20"), Method: "Cash"}},
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.False(t, repo.stored("OT-200").IsFullyPaid)

	// se puede reintentar
	repo.failPatch = nil
	_, err = uc.CommitBatch(context.Background(), "OT-200", dto.BatchPaymentRequest{
		DiagnosticOnly: true,
		Entries:        []dto.PaymentRequest{{Amount: dec("20"), Method: "Cash"}},
	})
	require.NoError(t, err)
	assert.True(t, repo.stored("OT-200").IsFullyPaid)
}

func TestDiagnosticOnlyBatch_ExactAdvanceClosesWithoutPayments(t *testing.T) {
	o := rejectedRepairOrder()
	o.AdvanceLegacyAmount = amt("30")
	repo := newMemRepo(o)
	uc := newUseCase(repo)

	out, err := uc.CommitBatch(context.Background(), "OT-200", dto.BatchPaymentRequest{DiagnosticOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 0, out.CommittedCount)
	assert.True(t, out.IsFullyPaid)
	assert.Empty(t, repo.stored("OT-200").PaymentLedger)
	assert.True(t, repo.stored("OT-200").IsFullyPaid)
}

func TestFinalizeRefundDecision(t *testing.T) {
	repo := newMemRepo(rejectedRepairOrder())
	uc := newUseCase(repo)
	ctx := context.Background()

	_, err := uc.FinalizeRefundDecision(ctx, "OT-200", dto.RefundDecisionRequest{Decision: "LATER", Amount: dec("120")})
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)

	_, err = uc.FinalizeRefundDecision(ctx, "OT-200", dto.RefundDecisionRequest{Decision: "REFUND", Amount: dec("100")})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, repo.patches)

	out, err := uc.FinalizeRefundDecision(ctx, "OT-200", dto.RefundDecisionRequest{Decision: "refund", Amount: dec("120")})
	require.NoError(t, err)
	assert.Equal(t, "[2026-03-14 10:30] Cobro solo de diagnóstico: se devolvió PEN 120.00 al cliente por adelanto excedente.", out.Note)

	stored := repo.stored("OT-200")
	assert.True(t, stored.IsFullyPaid)
	assert.Equal(t, out.Note, stored.SettlementNote)
	assert.Empty(t, stored.PaymentLedger)
	assert.Len(t, repo.patches, 1)
}

func TestFinalizeRefundDecision_NotOverpaid(t *testing.T) {
	o := rejectedRepairOrder()
	o.AdvanceLegacyAmount = amt("10")
	uc := newUseCase(newMemRepo(o))

	_, err := uc.FinalizeRefundDecision(context.Background(), "OT-200", dto.RefundDecisionRequest{Decision: "RETAIN", Amount: dec("20")})
	assert.ErrorIs(t, err, domain.ErrSettlementNotApplicable)
}

func TestVouchers_AddRemoveMirrorsLegacy(t *testing.T) {
	repo := newMemRepo(repairOrder())
	uc := newUseCase(repo)
	ctx := context.Background()

	_, err := uc.AddVoucher(ctx, "OT-100", dto.AddVoucherRequest{Type: "TICKET"})
	assert.ErrorIs(t, err, domain.ErrInvalidVoucherType)

	first, err := uc.AddVoucher(ctx, "OT-100", dto.AddVoucherRequest{Type: "e_receipt", Number: " B001-12 "})
	require.NoError(t, err)
	assert.Equal(t, "B001-12", first.Number)
	assert.Equal(t, string(entity.VoucherEReceipt), first.Type)

	a := dec("120")
	second, err := uc.AddVoucher(ctx, "OT-100", dto.AddVoucherRequest{Type: "E_INVOICE", Number: "F001-3", Amount: &a})
	require.NoError(t, err)

	stored := repo.stored("OT-100")
	require.Len(t, stored.Vouchers, 2)
	require.NotNil(t, stored.LegacyVoucher)
	assert.Equal(t, first.ID, stored.LegacyVoucher.ID)

	list, err := uc.RemoveVoucher(ctx, "OT-100", first.ID)
	require.NoError(t, err)
	require.Len(t, list.Vouchers, 1)
	assert.Equal(t, second.ID, repo.stored("OT-100").LegacyVoucher.ID)

	_, err = uc.RemoveVoucher(ctx, "OT-100", first.ID)
	assert.ErrorIs(t, err, domain.ErrVoucherNotFound)

	_, err = uc.RemoveVoucher(ctx, "OT-100", second.ID)
	require.NoError(t, err)
	assert.Nil(t, repo.stored("OT-100").LegacyVoucher)

	// los comprobantes no cambian los totales
	s, err := uc.GetSummary(ctx, "OT-100")
	require.NoError(t, err)
	assertDec(t, "120", s.NetPayable)
}

func TestMonthlyIncome(t *testing.T) {
	paid := repairOrder()
	paid.PaymentLedger = []entity.PaymentEvent{
		{ID: "p-1", Timestamp: time.Date(2026, 2, 27, 18, 0, 0, 0, time.UTC), Amount: amt("50"), Method: "Cash"},
		{ID: "p-2", Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Amount: amt("30"), Method: "Yape"},
		{ID: "p-3", Timestamp: time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC), Amount: amt("10"), Method: "Cash"},
	}
	later := repairOrder()
	later.ID = "OT-300"
	later.PaymentLedger = []entity.PaymentEvent{
		{ID: "p-4", Timestamp: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Amount: amt("120"), Method: "Cash"},
	}
	uc := newUseCase(newMemRepo(paid, later))

	report, err := uc.MonthlyIncome(context.Background(), 2026, 3)
	require.NoError(t, err)

	assert.Equal(t, "PEN", report.Currency)
	assertDec(t, "40", report.TotalCollected)
	require.Len(t, report.Orders, 1)
	assert.Equal(t, "OT-100", report.Orders[0].OrderID)
	assertDec(t, "120", report.Orders[0].NetPayable)
	assertDec(t, "40", report.Orders[0].CollectedInMonth)
	assertDec(t, "30", report.Orders[0].Balance)

	require.Len(t, report.ByMethod, 2)
	assert.Equal(t, "Cash", report.ByMethod[0].Method)
	assertDec(t, "10", report.ByMethod[0].Total)
	assert.Equal(t, 1, report.ByMethod[0].Count)
	assert.Equal(t, "Yape", report.ByMethod[1].Method)
	assertDec(t, "30", report.ByMethod[1].Total)
}

func TestMonthlyIncome_InvalidPeriod(t *testing.T) {
	uc := newUseCase(newMemRepo())
	for _, p := range [][2]int{{2026, 0}, {2026, 13}, {1999, 5}} {
		_, err := uc.MonthlyIncome(context.Background(), p[0], p[1])
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}
