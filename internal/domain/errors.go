package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrPersistence  = errors.New("error de persistencia")
)

// Errores de validación de cobros. Todos envuelven ErrInvalidInput:
// errors.Is(err, ErrInvalidInput) identifica cualquier error de validación.
var (
	ErrInvalidAmount           = fmt.Errorf("%w: el monto debe ser mayor a cero", ErrInvalidInput)
	ErrMissingMethod           = fmt.Errorf("%w: método de pago requerido", ErrInvalidInput)
	ErrMissingSubMethod        = fmt.Errorf("%w: especifique el método de pago", ErrInvalidInput)
	ErrBatchExceedsBalance     = fmt.Errorf("%w: el lote supera el saldo pendiente", ErrInvalidInput)
	ErrEmptyBatch              = fmt.Errorf("%w: el lote de pagos está vacío", ErrInvalidInput)
	ErrBatchClosed             = fmt.Errorf("%w: el lote de pagos ya no admite cambios", ErrInvalidInput)
	ErrUnknownItem             = fmt.Errorf("%w: ítem de costo desconocido", ErrInvalidInput)
	ErrSettlementNotApplicable = fmt.Errorf("%w: el informe no califica para cobro solo de diagnóstico", ErrInvalidInput)
	ErrInvalidDecision         = fmt.Errorf("%w: decisión de devolución inválida", ErrInvalidInput)
	ErrInvalidVoucherType      = fmt.Errorf("%w: tipo de comprobante inválido", ErrInvalidInput)
)

// Errores de búsqueda dentro de un informe. Envuelven ErrNotFound.
var (
	ErrVoucherNotFound    = fmt.Errorf("%w: comprobante", ErrNotFound)
	ErrBatchEntryNotFound = fmt.Errorf("%w: pago pendiente del lote", ErrNotFound)
)
