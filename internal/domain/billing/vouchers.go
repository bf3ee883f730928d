package billing

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/Taller-api/internal/domain"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
)

// AddVoucher agrega un comprobante con id sintético. No afecta totales.
func AddVoucher(list []entity.Voucher, v entity.Voucher) ([]entity.Voucher, entity.Voucher, error) {
	if !v.Type.Valid() {
		return list, entity.Voucher{}, domain.ErrInvalidVoucherType
	}
	v.ID = uuid.New().String()
	v.Number = strings.TrimSpace(v.Number)
	out := make([]entity.Voucher, 0, len(list)+1)
	out = append(out, list...)
	return append(out, v), v, nil
}

// RemoveVoucher quita un comprobante por id.
func RemoveVoucher(list []entity.Voucher, id string) ([]entity.Voucher, error) {
	for i, v := range list {
		if v.ID == id {
			out := make([]entity.Voucher, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), nil
		}
	}
	return list, domain.ErrVoucherNotFound
}

// LegacyVoucher primer comprobante, espejado en el campo único antiguo.
func LegacyVoucher(list []entity.Voucher) *entity.Voucher {
	if len(list) == 0 {
		return nil
	}
	v := list[0]
	return &v
}
