package billing

import (
	"github.com/jhoicas/Taller-api/internal/application/dto"
	dbilling "github.com/jhoicas/Taller-api/internal/domain/billing"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
)

func (uc *UseCase) summary(l *dbilling.OrderLedger) dto.BillingSummaryResponse {
	o := l.Order()
	res := l.Resolution()
	totals := l.Totals()
	paid := l.Paid()

	items := make([]dto.CostItemResponse, 0, len(totals.Lines))
	for _, line := range totals.Lines {
		items = append(items, dto.CostItemResponse{
			ID:         line.Item.ID,
			Label:      line.Item.Label,
			Category:   string(line.Item.Category),
			SourceArea: line.Item.SourceArea,
			Amount:     line.Item.Amount,
			Taxed:      line.Taxed,
			Tax:        line.Tax,
			Total:      line.Total,
		})
	}

	payments := make([]dto.PaymentResponse, 0, len(o.PaymentLedger))
	for _, ev := range l.Payments().Events() {
		payments = append(payments, dto.PaymentResponse{
			ID:        ev.ID,
			Timestamp: ev.Timestamp,
			Amount:    ev.Amount.Decimal,
			Method:    ev.Method,
		})
	}

	balance := l.Balance()
	return dto.BillingSummaryResponse{
		OrderID:          o.ID,
		Version:          o.Version,
		Currency:         uc.currency,
		Items:            items,
		TaxApplicableIDs: l.TaxIDs(),
		SubtotalBase:     totals.SubtotalBase,
		TotalTax:         totals.TotalTax,
		GrandTotal:       totals.GrandTotal,
		Discount:         totals.Discount,
		NetPayable:       totals.DisplayNetPayable(),
		RawNetPayable:    totals.NetPayable,
		PerCategory: dto.CategorySubtotalsResponse{
			Diagnostic:  totals.PerCategory.Diagnostic,
			MainService: totals.PerCategory.MainService,
			Extra:       totals.PerCategory.Extra,
		},
		TotalPaid:        paid.Amount(),
		PaidSource:       string(paid.Source()),
		Balance:          balance,
		SignedBalance:    l.SignedBalance(),
		SuggestedPayment: balance,
		IsFullyPaid:      o.IsFullyPaid,
		ChargeRevision:   res.ChargeRevision,
		ChargeRepair:     res.ChargeRepair,
		Payments:         payments,
		Vouchers:         toVoucherResponses(o.Vouchers),
		SettlementNote:   o.SettlementNote,
	}
}

func toVoucherResponse(v entity.Voucher) dto.VoucherResponse {
	out := dto.VoucherResponse{ID: v.ID, Type: string(v.Type), Number: v.Number}
	if v.Amount != nil {
		a := v.Amount.Decimal
		out.Amount = &a
	}
	return out
}

func toVoucherResponses(list []entity.Voucher) []dto.VoucherResponse {
	out := make([]dto.VoucherResponse, 0, len(list))
	for _, v := range list {
		out = append(out, toVoucherResponse(v))
	}
	return out
}
