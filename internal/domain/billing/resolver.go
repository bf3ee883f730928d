package billing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Taller-api/internal/domain/entity"
)

// Category clasificación de un ítem de costo.
type Category string

const (
	CategoryDiagnostic  Category = "Diagnostic"
	CategoryMainService Category = "MainService"
	CategoryGlobalExtra Category = "GlobalExtra"
	CategoryAreaExtra   Category = "AreaExtra"
)

// CostItem línea cobrable derivada del informe. Nunca se persiste.
type CostItem struct {
	ID         string          `json:"id"`
	Ref        ItemRef         `json:"-"`
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	Category   Category        `json:"category"`
	SourceArea string          `json:"source_area,omitempty"`
}

// Resolution resultado del resolvedor: ítems en orden canónico y las banderas
// de cobro de revisión y reparación.
type Resolution struct {
	Items          []CostItem
	ChargeRevision bool
	ChargeRepair   bool
}

// DiagnosticItem devuelve el ítem de diagnóstico si fue emitido.
func (r Resolution) DiagnosticItem() (CostItem, bool) {
	for _, it := range r.Items {
		if it.Category == CategoryDiagnostic {
			return it, true
		}
	}
	return CostItem{}, false
}

// Find busca un ítem por id.
func (r Resolution) Find(id string) (CostItem, bool) {
	for _, it := range r.Items {
		if it.ID == id {
			return it, true
		}
	}
	return CostItem{}, false
}

// ResolveCostItems deriva la lista canónica y sin duplicados de ítems cobrables.
// Es una función pura del informe: misma entrada, mismos ids, orden y montos.
func ResolveCostItems(o *entity.WorkOrder) Resolution {
	res := Resolution{ChargeRevision: true, ChargeRepair: true}
	if o == nil {
		return res
	}

	// Cada área puede apagar el cobro de revisión; nunca se vuelve a encender,
	// así que prevalece la última área del orden fijo con "NO".
	for _, area := range entity.InspectionOrder {
		if d, ok := latestDecision(o.AreaHistory[area], entity.AreaEntry.RevisionDecision); ok && d == entity.DecisionNo {
			res.ChargeRevision = false
		}
	}
	if d, ok := latestDecision(o.AreaHistory[entity.AreaTesting], entity.AreaEntry.RepairDecision); ok && d == entity.DecisionNo {
		res.ChargeRepair = false
	}

	diagnosticBase := o.DiagnosticFee.Decimal
	if !diagnosticBase.IsPositive() {
		diagnosticBase = decimal.Zero
	}
	if res.ChargeRepair && hasRepairService(o.MainServices) {
		// la reparación cotizada ya incluye el diagnóstico
		diagnosticBase = decimal.Zero
	}

	seen := make(map[string]struct{})
	emit := func(it CostItem) {
		seen[it.ID] = struct{}{}
		res.Items = append(res.Items, it)
	}

	if res.ChargeRevision && diagnosticBase.IsPositive() {
		ref := DiagnosticRef{}
		emit(CostItem{
			ID:       ref.Key(),
			Ref:      ref,
			Label:    "Diagnóstico / Revisión",
			Amount:   diagnosticBase,
			Category: CategoryDiagnostic,
		})
	}

	for i, svc := range o.MainServices {
		amount := svc.Amount.Decimal
		if (!res.ChargeRevision && IsRevisionService(svc.ServiceName)) ||
			(!res.ChargeRepair && IsRepairService(svc.ServiceName)) {
			amount = decimal.Zero
		}
		ref := MainRef{Index: i}
		emit(CostItem{
			ID:       ref.Key(),
			Ref:      ref,
			Label:    withSpecification(svc.ServiceName, svc.Specification),
			Amount:   amount,
			Category: CategoryMainService,
		})
	}

	for i, extra := range o.LegacyExtraServices {
		ref := LegacyRef{Index: i}
		id := extra.ID
		if _, dup := seen[id]; id == "" || dup {
			id = ref.Key()
		}
		emit(CostItem{
			ID:       id,
			Ref:      ref,
			Label:    withSpecification(extra.Description, extra.Specification),
			Amount:   extra.Amount.Decimal,
			Category: CategoryGlobalExtra,
		})
	}

	for _, area := range areaWalkOrder(o.AreaHistory) {
		for entryIdx, entry := range o.AreaHistory[area] {
			lists := []struct {
				name  AreaList
				items []entity.ExtraService
			}{
				{ListAddedServices, entry.AddedServices},
				{ListPrinterAdditionalServices, entry.PrinterAdditionalServices},
			}
			for _, list := range lists {
				for itemIdx, extra := range list.items {
					if extra.ID != "" {
						if _, dup := seen[extra.ID]; dup {
							continue
						}
					}
					ref := AreaRef{Area: area, EntryIndex: entryIdx, List: list.name, ItemIndex: itemIdx}
					id := extra.ID
					if id == "" {
						id = ref.Key()
					}
					emit(CostItem{
						ID:         id,
						Ref:        ref,
						Label:      withSpecification(extra.Description, extra.Specification),
						Amount:     extra.Amount.Decimal,
						Category:   CategoryAreaExtra,
						SourceArea: area,
					})
				}
			}
		}
	}
	return res
}

// latestDecision recorre los registros del más reciente al más antiguo y
// devuelve la primera decisión presente.
func latestDecision(entries []entity.AreaEntry, pick func(entity.AreaEntry) (entity.Decision, bool)) (entity.Decision, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if d, ok := pick(entries[i]); ok {
			return d, true
		}
	}
	return "", false
}

func hasRepairService(services []entity.MainService) bool {
	for _, svc := range services {
		if IsRepairService(svc.ServiceName) {
			return true
		}
	}
	return false
}

// areaWalkOrder primero las áreas conocidas en orden de inspección y luego el
// resto en orden alfabético, para que el recorrido no dependa del mapa.
func areaWalkOrder(history map[string][]entity.AreaEntry) []string {
	known := make(map[string]struct{}, len(entity.InspectionOrder))
	out := make([]string, 0, len(history))
	for _, area := range entity.InspectionOrder {
		known[area] = struct{}{}
		if _, ok := history[area]; ok {
			out = append(out, area)
		}
	}
	var rest []string
	for area := range history {
		if _, ok := known[area]; !ok {
			rest = append(rest, area)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func withSpecification(label, spec string) string {
	if spec == "" {
		return label
	}
	return label + " [" + spec + "]"
}
