package billing

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate IGV vigente.
var DefaultTaxRate = decimal.RequireFromString("0.18")

// TaxSet conjunto de ids de ítems con IGV activado. Conserva el orden de
// inserción para que el documento guardado no cambie sin necesidad.
type TaxSet struct {
	ids []string
}

// NewTaxSet construye el conjunto ignorando ids vacíos y repetidos.
func NewTaxSet(ids []string) TaxSet {
	s := TaxSet{}
	for _, id := range ids {
		if id != "" && !s.Has(id) {
			s.ids = append(s.ids, id)
		}
	}
	return s
}

// Has indica si el ítem tiene IGV activado.
func (s TaxSet) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Toggle activa o desactiva el IGV de un ítem y devuelve el nuevo estado.
func (s *TaxSet) Toggle(id string) bool {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return false
		}
	}
	s.ids = append(s.ids, id)
	return true
}

// IDs copia de los ids.
func (s TaxSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// LineTotal ítem con su impuesto calculado.
type LineTotal struct {
	Item  CostItem        `json:"item"`
	Taxed bool            `json:"taxed"`
	Tax   decimal.Decimal `json:"tax"`
	Total decimal.Decimal `json:"total"`
}

// CategorySubtotals subtotales base por categoría. Los adicionales globales y
// de área se suman en Extra.
type CategorySubtotals struct {
	Diagnostic  decimal.Decimal `json:"diagnostic"`
	MainService decimal.Decimal `json:"main_service"`
	Extra       decimal.Decimal `json:"extra"`
}

// Totals resultado del agregador. NetPayable guarda el valor sin recortar
// para auditoría; DisplayNetPayable es el que se muestra.
type Totals struct {
	Lines        []LineTotal       `json:"lines"`
	SubtotalBase decimal.Decimal   `json:"subtotal_base"`
	TotalTax     decimal.Decimal   `json:"total_tax"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
	Discount     decimal.Decimal   `json:"discount"`
	NetPayable   decimal.Decimal   `json:"net_payable"`
	PerCategory  CategorySubtotals `json:"per_category"`
}

// DisplayNetPayable neto a pagar recortado a cero.
func (t Totals) DisplayNetPayable() decimal.Decimal {
	return clampZero(t.NetPayable)
}

// Aggregator calcula impuestos y totales con una tasa fija.
type Aggregator struct {
	TaxRate decimal.Decimal
}

// NewAggregator construye el agregador; una tasa no positiva usa DefaultTaxRate.
func NewAggregator(rate decimal.Decimal) Aggregator {
	if !rate.IsPositive() {
		rate = DefaultTaxRate
	}
	return Aggregator{TaxRate: rate}
}

// Compute suma base e impuesto por ítem y aplica el descuento plano.
func (a Aggregator) Compute(items []CostItem, taxIDs TaxSet, discount decimal.Decimal) Totals {
	rate := a.TaxRate
	if !rate.IsPositive() {
		rate = DefaultTaxRate
	}
	t := Totals{Lines: make([]LineTotal, 0, len(items)), Discount: discount}
	for _, it := range items {
		line := LineTotal{Item: it, Tax: decimal.Zero}
		if taxIDs.Has(it.ID) {
			line.Taxed = true
			line.Tax = it.Amount.Mul(rate)
		}
		line.Total = it.Amount.Add(line.Tax)
		t.Lines = append(t.Lines, line)

		t.SubtotalBase = t.SubtotalBase.Add(it.Amount)
		t.TotalTax = t.TotalTax.Add(line.Tax)
		switch it.Category {
		case CategoryDiagnostic:
			t.PerCategory.Diagnostic = t.PerCategory.Diagnostic.Add(it.Amount)
		case CategoryMainService:
			t.PerCategory.MainService = t.PerCategory.MainService.Add(it.Amount)
		default:
			t.PerCategory.Extra = t.PerCategory.Extra.Add(it.Amount)
		}
	}
	t.GrandTotal = t.SubtotalBase.Add(t.TotalTax)
	t.NetPayable = t.GrandTotal.Sub(discount)
	return t
}

// ComputeTotals atajo con la tasa por defecto.
func ComputeTotals(items []CostItem, taxIDs []string, discount decimal.Decimal) Totals {
	return NewAggregator(DefaultTaxRate).Compute(items, NewTaxSet(taxIDs), discount)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
