package billing

import "fmt"

// ItemRef identifica estructuralmente el origen de un ítem de costo.
// Key produce el id serializado que se guarda en taxApplicableItemIds;
// su formato no puede cambiar sin romper informes ya almacenados.
type ItemRef interface {
	Key() string
	itemRef()
}

// DiagnosticRef el cargo de diagnóstico (a lo sumo uno por informe).
type DiagnosticRef struct{}

// MainRef servicio principal por posición.
type MainRef struct{ Index int }

// LegacyRef servicio adicional global por posición.
type LegacyRef struct{ Index int }

// AreaList lista de adicionales dentro de un registro de área.
type AreaList string

const (
	ListAddedServices             AreaList = "addedServices"
	ListPrinterAdditionalServices AreaList = "printerAdditionalServices"
)

// AreaRef adicional registrado en un área.
type AreaRef struct {
	Area       string
	EntryIndex int
	List       AreaList
	ItemIndex  int
}

const diagnosticItemID = "diag-1"

func (DiagnosticRef) Key() string { return diagnosticItemID }
func (r MainRef) Key() string { return fmt.Sprintf("main-%d", r.Index) }
func (r LegacyRef) Key() string { return fmt.Sprintf("legacy-%d", r.Index) }
func (r AreaRef) Key() string {
	return fmt.Sprintf("area-%s-%d-%s-%d", r.Area, r.EntryIndex, r.List, r.ItemIndex)
}

func (DiagnosticRef) itemRef() {}
func (MainRef) itemRef() {}
func (LegacyRef) itemRef() {}
func (AreaRef) itemRef() {}
