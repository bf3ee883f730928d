package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Taller-api/internal/domain/entity"
)

// WorkOrderPatch actualización atómica de campos puntuales del informe.
// Los punteros nil no se tocan. AppendPayments agrega al final del libro de
// pagos sin reescribir lo existente.
type WorkOrderPatch struct {
	// ExpectedVersion > 0 exige que el informe siga en esa versión; si cambió,
	// la escritura se rechaza con domain.ErrConflict.
	ExpectedVersion int64

	TaxApplicableItemIDs *[]string
	Discount             *decimal.Decimal
	NetPayable           *decimal.Decimal
	Balance              *decimal.Decimal
	IsFullyPaid          *bool
	Vouchers             *[]entity.Voucher
	// LegacyVoucher se escribe siempre que Vouchers no sea nil (nil lo borra).
	LegacyVoucher  *entity.Voucher
	SettlementNote *string
	AppendPayments []entity.PaymentEvent
}

// WorkOrderRepository puerto de persistencia del documento del informe.
type WorkOrderRepository interface {
	// GetByID devuelve nil, nil si el informe no existe.
	GetByID(ctx context.Context, id string) (*entity.WorkOrder, error)
	// Patch aplica la actualización en una sola escritura y devuelve la nueva versión.
	Patch(ctx context.Context, id string, patch WorkOrderPatch) (int64, error)
	// ListWithPaymentsBetween informes con al menos un pago en [from, to).
	ListWithPaymentsBetween(ctx context.Context, from, to time.Time) ([]*entity.WorkOrder, error)
}
