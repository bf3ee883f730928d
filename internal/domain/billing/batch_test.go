package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Taller-api/internal/domain"
	"github.com/jhoicas/Taller-api/internal/domain/billing"
)

func TestBatchSession_AgregarValida(t *testing.T) {
	s := billing.NewBatchSession(dec("80"), billing.BatchStandard)
	assert.Equal(t, billing.BatchEmpty, s.State())

	_, err := s.Add(dec("0"), "Cash", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = s.Add(dec("10"), "", "")
	assert.ErrorIs(t, err, domain.ErrMissingMethod)

	_, err = s.Add(dec("10"), billing.MethodOther, " ")
	assert.ErrorIs(t, err, domain.ErrMissingSubMethod)

	e, err := s.Add(dec("10"), billing.MethodOther, "Plin")
	require.NoError(t, err)
	assert.Equal(t, "Other - Plin", e.LedgerMethod())
	assert.Equal(t, billing.BatchAccumulating, s.State())
}

func TestBatchSession_RechazaSiSuperaSaldoMasTolerancia(t *testing.T) {
	s := billing.NewBatchSession(dec("80"), billing.BatchStandard)

	_, err := s.Add(dec("50"), "Cash", "")
	require.NoError(t, err)

	// 50 + 30.1 = 80.1 <= 80 + 0.1
	_, err = s.Add(dec("30.1"), "Yape", "")
	require.NoError(t, err)

	_, err = s.Add(dec("0.01"), "Yape", "")
	assert.ErrorIs(t, err, domain.ErrBatchExceedsBalance)
	assertDec(t, "80.1", s.RunningTotal())
}

func TestBatchSession_QuitarYAutocompletar(t *testing.T) {
	s := billing.NewBatchSession(dec("80"), billing.BatchStandard)
	e, err := s.Add(dec("50"), "Cash", "")
	require.NoError(t, err)

	assertDec(t, "30", s.AutoFill())
	assertDec(t, "30", s.PendingAmount())

	require.NoError(t, s.Remove(e.ID))
	assert.Equal(t, billing.BatchEmpty, s.State())
	assert.ErrorIs(t, s.Remove("otro"), domain.ErrBatchEntryNotFound)
	assertDec(t, "80", s.AutoFill())

	over := billing.NewBatchSession(dec("-5"), billing.BatchStandard)
	assertDec(t, "0", over.AutoFill())
}

// Escenario D: dos pagos confirmados en orden dejan el saldo en cero.
func TestBatchSession_ConfirmaEnOrden(t *testing.T) {
	s := billing.NewBatchSession(dec("80"), billing.BatchStandard)
	_, err := s.Add(dec("50"), "Cash", "")
	require.NoError(t, err)
	_, err = s.Add(dec("30"), "Yape", "")
	require.NoError(t, err)

	var methods []string
	n, err := s.Commit(context.Background(), func(_ context.Context, e billing.BatchEntry) error {
		methods = append(methods, e.LedgerMethod())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Cash", "Yape"}, methods)
	assert.Equal(t, billing.BatchClosed, s.State())
	assertDec(t, "0", s.Balance())

	_, err = s.Add(dec("1"), "Cash", "")
	assert.ErrorIs(t, err, domain.ErrBatchClosed)
	assert.ErrorIs(t, s.Cancel(), domain.ErrBatchClosed)
}

func TestBatchSession_FalloParcialConservaPrefijo(t *testing.T) {
	s := billing.NewBatchSession(dec("100"), billing.BatchStandard)
	for _, m := range []string{"Cash", "Yape", "Card"} {
		_, err := s.Add(dec("20"), m, "")
		require.NoError(t, err)
	}
	boom := errors.New("store caído")

	calls := 0
	n, err := s.Commit(context.Background(), func(_ context.Context, e billing.BatchEntry) error {
		calls++
		if e.Method == "Yape" {
			return boom
		}
		return nil
	})

	assert.Equal(t, 1, n)
	assert.Equal(t, 2, calls)
	var commitErr *billing.BatchCommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, 1, commitErr.Committed)
	assert.Equal(t, 3, commitErr.Total)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, billing.BatchAccumulating, s.State())
	require.Len(t, s.Entries(), 2)
	assert.Equal(t, "Yape", s.Entries()[0].Method)
	assertDec(t, "80", s.Balance())
}

func TestBatchSession_VacioYCancelado(t *testing.T) {
	s := billing.NewBatchSession(dec("50"), billing.BatchStandard)
	_, err := s.Commit(context.Background(), func(context.Context, billing.BatchEntry) error { return nil })
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)

	_, err = s.Add(dec("10"), "Cash", "")
	require.NoError(t, err)
	require.NoError(t, s.Cancel())
	assert.Equal(t, billing.BatchCancelled, s.State())
	assert.Empty(t, s.Entries())

	_, err = s.Commit(context.Background(), func(context.Context, billing.BatchEntry) error { return nil })
	assert.ErrorIs(t, err, domain.ErrBatchClosed)
}

func TestBatchSession_DiagnosticoConSaldoCeroCierraVacio(t *testing.T) {
	s := billing.NewBatchSession(dec("0"), billing.BatchDiagnosticOnly)

	n, err := s.Commit(context.Background(), func(context.Context, billing.BatchEntry) error {
		t.Fatal("no debe escribir en el libro")
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, billing.BatchClosed, s.State())
}

func TestBatchSession_ContextoCanceladoDetieneConfirmacion(t *testing.T) {
	s := billing.NewBatchSession(dec("50"), billing.BatchStandard)
	_, err := s.Add(dec("10"), "Cash", "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := s.Commit(ctx, func(context.Context, billing.BatchEntry) error { return nil })

	assert.Zero(t, n)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, billing.BatchAccumulating, s.State())
}

func TestBatchSession_ToleranciaConfigurable(t *testing.T) {
	s := billing.NewBatchSession(dec("10"), billing.BatchStandard, billing.WithTolerance(dec("0")))
	_, err := s.Add(dec("10.05"), "Cash", "")
	assert.ErrorIs(t, err, domain.ErrBatchExceedsBalance)
}
