package entity

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount es un monto monetario tolerante al decodificar: los informes antiguos
// guardan montos como número, como texto o no los guardan. Cualquier valor
// ausente o no numérico se interpreta como cero.
type Amount struct {
	decimal.Decimal
}

// NewAmount envuelve un decimal.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// AmountFromFloat construye un monto desde float64 (pruebas y datos semilla).
func AmountFromFloat(f float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(f)}
}

// MarshalJSON escribe el monto como número JSON, igual que los documentos existentes.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON nunca falla: null, booleanos, objetos o texto no numérico quedan en cero.
func (a *Amount) UnmarshalJSON(b []byte) error {
	a.Decimal = parseLenient(string(b))
	return nil
}

func parseLenient(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" || s == "null" {
		return decimal.Zero
	}
	if s[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return decimal.Zero
		}
		s = strings.TrimSpace(unq)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
