// Command report prints the seller report for a JSON dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/noah-isme/sales-insight/internal/app"
	"github.com/noah-isme/sales-insight/internal/bonus"
	"github.com/noah-isme/sales-insight/internal/config"
	"github.com/noah-isme/sales-insight/internal/dataset"
	"github.com/noah-isme/sales-insight/internal/export"
	"github.com/noah-isme/sales-insight/internal/obs"
	"github.com/noah-isme/sales-insight/internal/pricing"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

func main() {
	tiers := bonus.DefaultTiers()
	var (
		in       = flag.String("in", "", "JSON dataset to analyse (- for stdin)")
		format   = flag.String("format", export.FormatJSON, "output format: json or csv")
		revenue  = flag.String("revenue", pricing.StrategySimple, "revenue strategy")
		strategy = flag.String("bonus", bonus.StrategyProfitTiers, "bonus strategy")
		verbose  = flag.Bool("v", false, "log skipped receipts and items")
	)
	top := flag.Int("bonus-top-bps", int(tiers.TopBps), "bonus for the top seller in basis points")
	podium := flag.Int("bonus-podium-bps", int(tiers.PodiumBps), "bonus for ranks two and three in basis points")
	def := flag.Int("bonus-default-bps", int(tiers.DefaultBps), "bonus for the remaining sellers in basis points")
	last := flag.Int("bonus-last-bps", int(tiers.LastBps), "bonus for the last seller in basis points")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := obs.NewLoggerTo(os.Stderr, "console", level)

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: report -in dataset.json [-format csv]")
		os.Exit(2)
	}

	opts, _, err := app.Strategies(&config.Config{
		RevenueStrategy: *revenue,
		BonusStrategy:   *strategy,
		BonusTopBps:     int32(*top),
		BonusPodiumBps:  int32(*podium),
		BonusDefaultBps: int32(*def),
		BonusLastBps:    int32(*last),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve strategies")
	}

	if err := run(*in, *format, opts, logger); err != nil {
		logger.Fatal().Err(err).Msg("build report")
	}
}

func run(in, format string, opts salesreport.Options, logger zerolog.Logger) error {
	var (
		data *salesreport.Dataset
		err  error
	)
	if in == "-" {
		data, err = dataset.Decode(os.Stdin)
	} else {
		data, err = dataset.FileSource{Path: in}.Load(context.Background())
	}
	if err != nil {
		return err
	}

	rows, stats, err := salesreport.AnalyzeWithStats(data, &opts)
	if err != nil {
		return err
	}
	logger.Debug().
		Int("sellers", len(rows)).
		Int("skipped_receipts", stats.SkippedReceipts).
		Int("skipped_items", stats.SkippedItems).
		Msg("report computed")
	return export.Write(os.Stdout, format, rows)
}
