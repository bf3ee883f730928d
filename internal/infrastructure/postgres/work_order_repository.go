package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Taller-api/internal/domain"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
	"github.com/jhoicas/Taller-api/internal/domain/repository"
)

var _ repository.WorkOrderRepository = (*WorkOrderRepo)(nil)

// WorkOrderRepo guarda cada informe como documento JSONB (columna doc).
// net_payable, balance e is_fully_paid se duplican en columnas para reportes.
type WorkOrderRepo struct {
	q Querier
}

// NewWorkOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWorkOrderRepository(q Querier) *WorkOrderRepo {
	return &WorkOrderRepo{q: q}
}

// Create inserta un informe completo (importación y datos semilla).
func (r *WorkOrderRepo) Create(ctx context.Context, o *entity.WorkOrder) error {
	if o.ID == "" {
		return fmt.Errorf("insert work order: %w", domain.ErrInvalidInput)
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal work order: %w", err)
	}
	query := `
		INSERT INTO work_orders (id, doc, version, net_payable, balance, is_fully_paid, updated_at)
		VALUES ($1, $2::jsonb, 1, $3, $4, $5, now())`
	_, err = r.q.Exec(ctx, query, o.ID, doc, o.NetPayable.Decimal, o.Balance.Decimal, o.IsFullyPaid)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("work order %s: %w", o.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert work order: %w", err)
	}
	o.Version = 1
	return nil
}

// GetByID devuelve el informe o nil si no existe.
func (r *WorkOrderRepo) GetByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var doc []byte
	var version int64
	err := r.q.QueryRow(ctx, `SELECT doc, version FROM work_orders WHERE id = $1`, id).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get work order: %w", err)
	}
	return decodeWorkOrder(id, doc, version)
}

// Patch mezcla los campos indicados en el documento (operador ||) y agrega
// pagos al final de paymentLedger, todo en un único UPDATE.
func (r *WorkOrderRepo) Patch(ctx context.Context, id string, p repository.WorkOrderPatch) (int64, error) {
	set := map[string]any{}
	if p.TaxApplicableItemIDs != nil {
		taxIDs := *p.TaxApplicableItemIDs
		if taxIDs == nil {
			taxIDs = []string{}
		}
		set["taxApplicableItemIds"] = taxIDs
	}
	if p.Discount != nil {
		set["discount"] = entity.NewAmount(*p.Discount)
	}
	if p.NetPayable != nil {
		set["netPayable"] = entity.NewAmount(*p.NetPayable)
	}
	if p.Balance != nil {
		set["balance"] = entity.NewAmount(*p.Balance)
	}
	if p.IsFullyPaid != nil {
		set["isFullyPaidFlag"] = *p.IsFullyPaid
	}
	if p.Vouchers != nil {
		vouchers := *p.Vouchers
		if vouchers == nil {
			vouchers = []entity.Voucher{}
		}
		set["vouchers"] = vouchers
		set["voucher"] = p.LegacyVoucher
	}
	if p.SettlementNote != nil {
		set["settlementNote"] = *p.SettlementNote
	}
	setJSON, err := json.Marshal(set)
	if err != nil {
		return 0, fmt.Errorf("marshal patch: %w", err)
	}
	payments := p.AppendPayments
	if payments == nil {
		payments = []entity.PaymentEvent{}
	}
	appendJSON, err := json.Marshal(payments)
	if err != nil {
		return 0, fmt.Errorf("marshal payments: %w", err)
	}

	query := `
		UPDATE work_orders
		SET doc = CASE
		        WHEN jsonb_array_length($3::jsonb) = 0 THEN doc || $2::jsonb
		        ELSE jsonb_set(
		            doc || $2::jsonb,
		            '{paymentLedger}',
		            CASE WHEN jsonb_typeof(doc->'paymentLedger') = 'array'
		                 THEN doc->'paymentLedger' ELSE '[]'::jsonb END || $3::jsonb)
		        END,
		    version       = version + 1,
		    net_payable   = COALESCE($4, net_payable),
		    balance       = COALESCE($5, balance),
		    is_fully_paid = COALESCE($6, is_fully_paid),
		    updated_at    = now()
		WHERE id = $1 AND ($7::bigint = 0 OR version = $7)
		RETURNING version`
	var version int64
	err = r.q.QueryRow(ctx, query,
		id, setJSON, appendJSON,
		p.NetPayable, p.Balance, p.IsFullyPaid,
		p.ExpectedVersion,
	).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("patch work order: %w", err)
	}
	// Sin filas: o no existe o la versión cambió.
	var current int64
	err = r.q.QueryRow(ctx, `SELECT version FROM work_orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("check work order version: %w", err)
	}
	return 0, fmt.Errorf("work order %s version %d (esperada %d): %w", id, current, p.ExpectedVersion, domain.ErrConflict)
}

// ListWithPaymentsBetween informes con al menos un pago con timestamp en [from, to).
func (r *WorkOrderRepo) ListWithPaymentsBetween(ctx context.Context, from, to time.Time) ([]*entity.WorkOrder, error) {
	query := `
		SELECT w.id, w.doc, w.version
		FROM work_orders w
		WHERE EXISTS (
			SELECT 1
			FROM jsonb_array_elements(
			    CASE WHEN jsonb_typeof(w.doc->'paymentLedger') = 'array'
			         THEN w.doc->'paymentLedger' ELSE '[]'::jsonb END) AS p(ev)
			WHERE (p.ev->>'timestamp')::timestamptz >= $1
			  AND (p.ev->>'timestamp')::timestamptz < $2)
		ORDER BY w.id`
	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	var list []*entity.WorkOrder
	for rows.Next() {
		var id string
		var doc []byte
		var version int64
		if err := rows.Scan(&id, &doc, &version); err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		o, err := decodeWorkOrder(id, doc, version)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func decodeWorkOrder(id string, doc []byte, version int64) (*entity.WorkOrder, error) {
	var o entity.WorkOrder
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, fmt.Errorf("decode work order %s: %w", id, err)
	}
	if o.ID == "" {
		o.ID = id
	}
	o.Version = version
	return &o, nil
}
