package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Clock fuente de la hora de los pagos y notas; en tests se fija.
type Clock func() time.Time

// Config parámetros de cobro (ver config.BillingConfig).
type Config struct {
	TaxRate        decimal.Decimal
	BatchTolerance decimal.Decimal
	Currency       string
}

// Option personaliza el caso de uso.
type Option func(*UseCase)

// WithClock reemplaza time.Now.
func WithClock(c Clock) Option {
	return func(uc *UseCase) {
		if c != nil {
			uc.now = c
		}
	}
}
