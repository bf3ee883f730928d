package billing

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Taller-api/internal/application/dto"
	"github.com/jhoicas/Taller-api/internal/domain"
	dbilling "github.com/jhoicas/Taller-api/internal/domain/billing"
)

// MonthlyIncome suma lo cobrado en el mes (UTC) a partir del libro de cada
// informe, con el neto y saldo recalculados por el motor.
func (uc *UseCase) MonthlyIncome(ctx context.Context, year, month int) (*dto.IncomeReportResponse, error) {
	if year < 2000 || month < 1 || month > 12 {
		return nil, domain.ErrInvalidInput
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	orders, err := uc.repo.ListWithPaymentsBetween(ctx, from, to)
	if err != nil {
		return nil, persistErr(err)
	}

	report := &dto.IncomeReportResponse{
		Year:           year,
		Month:          month,
		Currency:       uc.currency,
		TotalCollected: decimal.Zero,
		Orders:         make([]dto.OrderIncomeResponse, 0, len(orders)),
	}
	byMethod := map[string]*dto.MethodIncomeResponse{}
	for _, o := range orders {
		l := dbilling.NewOrderLedger(o, uc.agg)
		collected := decimal.Zero
		for _, ev := range l.Payments().Events() {
			if ev.Timestamp.Before(from) || !ev.Timestamp.Before(to) {
				continue
			}
			collected = collected.Add(ev.Amount.Decimal)
			m, ok := byMethod[ev.Method]
			if !ok {
				m = &dto.MethodIncomeResponse{Method: ev.Method, Total: decimal.Zero}
				byMethod[ev.Method] = m
			}
			m.Total = m.Total.Add(ev.Amount.Decimal)
			m.Count++
		}
		if collected.IsZero() {
			continue
		}
		report.TotalCollected = report.TotalCollected.Add(collected)
		report.Orders = append(report.Orders, dto.OrderIncomeResponse{
			OrderID:          o.ID,
			NetPayable:       l.Totals().DisplayNetPayable(),
			CollectedInMonth: collected,
			Balance:          l.Balance(),
			IsFullyPaid:      o.IsFullyPaid,
		})
	}

	report.ByMethod = make([]dto.MethodIncomeResponse, 0, len(byMethod))
	for _, m := range byMethod {
		report.ByMethod = append(report.ByMethod, *m)
	}
	sort.Slice(report.ByMethod, func(i, j int) bool {
		return report.ByMethod[i].Method < report.ByMethod[j].Method
	})
	uc.log.Debug().Int("year", year).Int("month", month).Int("orders", len(report.Orders)).Msg("income report built")
	return report, nil
}
