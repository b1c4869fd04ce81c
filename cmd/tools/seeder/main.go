package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sales-insight/internal/app"
	"github.com/noah-isme/sales-insight/internal/dataset"
	"github.com/noah-isme/sales-insight/internal/obs"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

func main() {
	_ = godotenv.Load()

	var (
		in       = flag.String("in", "", "import an existing JSON dataset instead of generating one")
		out      = flag.String("out", "", "write the dataset as JSON to this file (- for stdout)")
		dbURL    = flag.String("db", os.Getenv("DATABASE_URL"), "load the dataset into this Postgres database")
		migrate  = flag.Bool("migrate", true, "apply schema migrations before loading")
		truncate = flag.Bool("truncate", true, "empty the dataset tables before loading")
		sellers  = flag.Int("sellers", 5, "number of sellers to generate")
		products = flag.Int("products", 20, "number of products to generate")
		receipts = flag.Int("receipts", 200, "number of receipts to generate")
		maxItems = flag.Int("max-items", 5, "maximum line items per receipt")
		unknown  = flag.Int("unknown-pc", 0, "percentage of receipts referencing an unknown seller")
		seed     = flag.Uint64("seed", 1, "random seed")
	)
	flag.Parse()

	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	if *out == "" && *dbURL == "" {
		logger.Fatal().Msg("nothing to do: set -out or -db (or DATABASE_URL)")
	}

	data, err := loadOrGenerate(*in, dataset.GenerateOptions{
		Sellers:         *sellers,
		Products:        *products,
		Receipts:        *receipts,
		MaxItems:        *maxItems,
		Seed:            *seed,
		UnknownSellerPc: *unknown,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("prepare dataset")
	}
	logger.Info().
		Int("sellers", len(data.Sellers)).
		Int("products", len(data.Products)).
		Int("receipts", len(data.PurchaseRecords)).
		Msg("dataset ready")

	if *out != "" {
		if err := writeJSON(*out, data); err != nil {
			logger.Fatal().Err(err).Str("out", *out).Msg("write dataset")
		}
		logger.Info().Str("out", *out).Msg("dataset written")
	}

	if *dbURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := load(ctx, *dbURL, data, *migrate, *truncate, logger); err != nil {
			logger.Fatal().Err(err).Msg("load dataset")
		}
		logger.Info().Msg("seeding completed")
	}
}

func loadOrGenerate(path string, opts dataset.GenerateOptions) (*salesreport.Dataset, error) {
	if path == "" {
		return dataset.Generate(opts), nil
	}
	return dataset.FileSource{Path: path}.Load(context.Background())
}

func writeJSON(path string, data *salesreport.Dataset) error {
	if path == "-" {
		return dataset.Encode(os.Stdout, data)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.Encode(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func load(ctx context.Context, dbURL string, data *salesreport.Dataset, migrate, truncate bool, logger zerolog.Logger) error {
	if migrate {
		if err := app.RunMigrations(dbURL); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}
	pool, err := app.NewPool(ctx, dbURL, "sales-insight-seeder")
	if err != nil {
		return err
	}
	defer pool.Close()

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if truncate {
			tables := []string{"receipt_items", "receipts", "products", "sellers"}
			if _, err := tx.Exec(ctx, "TRUNCATE "+strings.Join(tables, ", ")); err != nil {
				return fmt.Errorf("truncate: %w", err)
			}
		}
		return dataset.Import(ctx, tx, data)
	})
}
