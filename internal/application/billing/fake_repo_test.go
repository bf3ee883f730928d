package billing_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jhoicas/Taller-api/internal/domain"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
	"github.com/jhoicas/Taller-api/internal/domain/repository"
)

// memRepo guarda los informes serializados, como el documento JSONB real.
type memRepo struct {
	mu       sync.Mutex
	docs     map[string][]byte
	versions map[string]int64
	patches  []repository.WorkOrderPatch
	// failPatch si devuelve error, el parche n (desde 1) no se aplica.
	failPatch func(n int, p repository.WorkOrderPatch) error
	getErr    error
}

func newMemRepo(orders ...*entity.WorkOrder) *memRepo {
	r := &memRepo{docs: map[string][]byte{}, versions: map[string]int64{}}
	for _, o := range orders {
		b, err := json.Marshal(o)
		if err != nil {
			panic(err)
		}
		r.docs[o.ID] = b
		r.versions[o.ID] = 1
	}
	return r
}

func (r *memRepo) GetByID(_ context.Context, id string) (*entity.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	b, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	var o entity.WorkOrder
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, err
	}
	o.Version = r.versions[id]
	return &o, nil
}

func (r *memRepo) Patch(_ context.Context, id string, p repository.WorkOrderPatch) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.docs[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if p.ExpectedVersion != 0 && p.ExpectedVersion != r.versions[id] {
		return 0, domain.ErrConflict
	}
	if r.failPatch != nil {
		if err := r.failPatch(len(r.patches)+1, p); err != nil {
			return 0, err
		}
	}

	var o entity.WorkOrder
	if err := json.Unmarshal(b, &o); err != nil {
		return 0, err
	}
	if p.TaxApplicableItemIDs != nil {
		o.TaxApplicableItemIDs = *p.TaxApplicableItemIDs
	}
	if p.Discount != nil {
		o.Discount = entity.NewAmount(*p.Discount)
	}
	if p.NetPayable != nil {
		o.NetPayable = entity.NewAmount(*p.NetPayable)
	}
	if p.Balance != nil {
		o.Balance = entity.NewAmount(*p.Balance)
	}
	if p.IsFullyPaid != nil {
		o.IsFullyPaid = *p.IsFullyPaid
	}
	if p.Vouchers != nil {
		o.Vouchers = *p.Vouchers
		o.LegacyVoucher = p.LegacyVoucher
	}
	if p.SettlementNote != nil {
		o.SettlementNote = *p.SettlementNote
	}
	o.PaymentLedger = append(o.PaymentLedger, p.AppendPayments...)

	nb, err := json.Marshal(&o)
	if err != nil {
		return 0, err
	}
	r.docs[id] = nb
	r.versions[id]++
	r.patches = append(r.patches, p)
	return r.versions[id], nil
}

func (r *memRepo) ListWithPaymentsBetween(_ context.Context, from, to time.Time) ([]*entity.WorkOrder, error) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var out []*entity.WorkOrder
	for _, id := range ids {
		o, err := r.GetByID(context.Background(), id)
		if err != nil {
			return nil, err
		}
		for _, ev := range o.PaymentLedger {
			if !ev.Timestamp.Before(from) && ev.Timestamp.Before(to) {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (r *memRepo) stored(id string) *entity.WorkOrder {
	o, _ := r.GetByID(context.Background(), id)
	return o
}
