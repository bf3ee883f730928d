// import_orders carga informes exportados desde la base documental anterior
// (arreglo JSON de documentos) en la tabla work_orders, en una sola transacción.
// Antes de insertar recalcula neto y saldo con el motor de cobros para que las
// columnas de reporte coincidan con el documento.
//
// Uso: go run ./cmd/import_orders [-charset latin1] export.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	dbilling "github.com/jhoicas/Taller-api/internal/domain/billing"
	"github.com/jhoicas/Taller-api/internal/domain/entity"
	"github.com/jhoicas/Taller-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Taller-api/pkg/config"
	"github.com/jhoicas/Taller-api/pkg/logger"
)

func main() {
	charset := flag.String("charset", "utf-8", "codificación del archivo: utf-8 | latin1")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: import_orders [-charset latin1] export.json")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir export")
	}
	defer f.Close()

	orders, err := decodeExport(f, *charset)
	if err != nil {
		log.Fatal().Err(err).Msg("decodificar export")
	}
	agg := dbilling.NewAggregator(cfg.Billing.TaxRate)
	for _, o := range orders {
		prepare(o, agg)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	err = postgres.NewTxRunner(pool).Run(ctx, func(repo *postgres.WorkOrderRepo) error {
		for _, o := range orders {
			if err := repo.Create(ctx, o); err != nil {
				return fmt.Errorf("informe %s: %w", o.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("importar informes")
	}
	log.Info().Int("orders", len(orders)).Msg("informes importados")
}

// decodeExport lee el arreglo de documentos. Los export antiguos vienen en ISO-8859-1.
func decodeExport(r io.Reader, charset string) ([]*entity.WorkOrder, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
	case "latin1", "iso-8859-1", "iso8859-1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("charset no soportado: %s", charset)
	}
	var orders []*entity.WorkOrder
	if err := json.NewDecoder(r).Decode(&orders); err != nil {
		return nil, err
	}
	out := orders[:0]
	for i, o := range orders {
		if o == nil {
			continue
		}
		o.ID = strings.TrimSpace(o.ID)
		if o.ID == "" {
			return nil, fmt.Errorf("informe sin id en la posición %d", i)
		}
		out = append(out, o)
	}
	return out, nil
}

// prepare recalcula neto y saldo persistidos a partir del documento.
func prepare(o *entity.WorkOrder, agg dbilling.Aggregator) {
	l := dbilling.NewOrderLedger(o, agg)
	o.NetPayable = entity.NewAmount(l.NetPayable())
	o.Balance = entity.NewAmount(l.Balance())
	if !o.IsFullyPaid && len(o.PaymentLedger) > 0 && !l.SignedBalance().IsPositive() {
		o.IsFullyPaid = true
	}
}
