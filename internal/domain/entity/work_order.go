package entity

import (
	"encoding/json"
	"strings"
	"time"
)

// Áreas de taller por las que pasa un informe. El orden de InspectionOrder
// es el orden fijo en que se evalúan las decisiones de cobro.
const (
	AreaPrinter     = "PRINTER"
	AreaHardware    = "HARDWARE"
	AreaSoftware    = "SOFTWARE"
	AreaElectronics = "ELECTRONICS"
	AreaTesting     = "TESTING"
)

// InspectionOrder orden fijo de evaluación de áreas.
var InspectionOrder = []string{AreaPrinter, AreaHardware, AreaSoftware, AreaElectronics, AreaTesting}

// WorkOrder es el informe técnico (orden de trabajo). Lo administra la capa CRUD;
// el motor de cobros solo lee el documento y actualiza campos puntuales.
// Los nombres JSON son los del documento almacenado y no deben cambiar.
type WorkOrder struct {
	ID                   string                 `json:"id"`
	DiagnosticFee        Amount                 `json:"diagnosticFee"`
	MainServices         []MainService          `json:"mainServices,omitempty"`
	LegacyExtraServices  []ExtraService         `json:"legacyExtraServices,omitempty"`
	AreaHistory          map[string][]AreaEntry `json:"areaHistory,omitempty"`
	TaxApplicableItemIDs []string               `json:"taxApplicableItemIds,omitempty"`
	Discount             Amount                 `json:"discount"`
	NetPayable           Amount                 `json:"netPayable"`
	Balance              Amount                 `json:"balance"`
	PaymentLedger        []PaymentEvent         `json:"paymentLedger,omitempty"`
	AdvanceLegacyAmount  Amount                 `json:"advanceLegacyAmount"`
	IsFullyPaid          bool                   `json:"isFullyPaidFlag"`
	Vouchers             []Voucher              `json:"vouchers,omitempty"`
	LegacyVoucher        *Voucher               `json:"voucher,omitempty"` // primer comprobante, para pantallas antiguas
	SettlementNote       string                 `json:"settlementNote,omitempty"`

	// Version es el token de concurrencia optimista; vive fuera del documento.
	Version int64 `json:"-"`
}

// MainService servicio principal cotizado.
type MainService struct {
	ServiceName   string `json:"serviceName"`
	Specification string `json:"specification,omitempty"`
	Amount        Amount `json:"amount"`
}

// ExtraService servicio adicional, global (legacy) o registrado en un área.
type ExtraService struct {
	ID            string `json:"id,omitempty"`
	Description   string `json:"description"`
	Specification string `json:"specification,omitempty"`
	Amount        Amount `json:"amount"`
}

// Decision valor de las banderas de cobro ("SI" | "NO"); vacío = no registrada.
type Decision string

const (
	DecisionYes Decision = "SI"
	DecisionNo  Decision = "NO"
)

// UnmarshalJSON acepta "SI"/"SÍ"/"NO" en cualquier capitalización y booleanos.
// Cualquier otro valor equivale a decisión no registrada.
func (d *Decision) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		*d = ""
		return nil
	}
	switch v := raw.(type) {
	case bool:
		if v {
			*d = DecisionYes
		} else {
			*d = DecisionNo
		}
	case string:
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "SI", "SÍ":
			*d = DecisionYes
		case "NO":
			*d = DecisionNo
		default:
			*d = ""
		}
	default:
		*d = ""
	}
	return nil
}

// AreaEntry registro de un paso del informe por un área.
type AreaEntry struct {
	ChargeRevision            Decision       `json:"cobra_revision,omitempty"`
	PrinterChargeRevision     Decision       `json:"cobra_revision_impresora,omitempty"`
	ChargeRepair              Decision       `json:"cobra_reparacion,omitempty"`
	AddedServices             []ExtraService `json:"addedServices,omitempty"`
	PrinterAdditionalServices []ExtraService `json:"printerAdditionalServices,omitempty"`
}

// RevisionDecision devuelve la decisión de cobro de revisión del registro.
// La bandera general tiene prioridad sobre el alias de impresoras.
func (e AreaEntry) RevisionDecision() (Decision, bool) {
	if e.ChargeRevision != "" {
		return e.ChargeRevision, true
	}
	if e.PrinterChargeRevision != "" {
		return e.PrinterChargeRevision, true
	}
	return "", false
}

// RepairDecision devuelve la decisión de cobro de reparación del registro.
func (e AreaEntry) RepairDecision() (Decision, bool) {
	return e.ChargeRepair, e.ChargeRepair != ""
}

// PaymentEvent pago registrado en el libro. Inmutable una vez guardado.
type PaymentEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Amount    Amount    `json:"amount"`
	Method    string    `json:"method"`
}

// VoucherType tipo de comprobante emitido.
type VoucherType string

const (
	VoucherPhysicalReceipt VoucherType = "PHYSICAL_RECEIPT"
	VoucherEReceipt        VoucherType = "E_RECEIPT"
	VoucherEInvoice        VoucherType = "E_INVOICE"
)

// Valid indica si el tipo es uno de los conocidos.
func (t VoucherType) Valid() bool {
	switch t {
	case VoucherPhysicalReceipt, VoucherEReceipt, VoucherEInvoice:
		return true
	}
	return false
}

// Voucher comprobante (boleta/factura) emitido para el informe. Solo registro, no afecta totales.
type Voucher struct {
	ID     string      `json:"id"`
	Type   VoucherType `json:"type"`
	Number string      `json:"number"`
	Amount *Amount     `json:"amount,omitempty"`
}
