package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/sheetsift/internal/api"
	"github.com/insightdelivered/sheetsift/internal/cleanup"
	"github.com/insightdelivered/sheetsift/internal/config"
	"github.com/insightdelivered/sheetsift/internal/converter"
	"github.com/insightdelivered/sheetsift/internal/logger"
	"github.com/insightdelivered/sheetsift/internal/models"
	"github.com/insightdelivered/sheetsift/internal/storage"
	"github.com/insightdelivered/sheetsift/internal/writer"
)

const version = "1.0.0"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("Invalid configuration: %v\n", err)
	}

	// CLI flags, defaulting to the environment
	bankFlag := flag.String("bank", "", "Bank: seb, swedbank, luminor, revolut, siauliu, paysera, citadele")
	outputFlag := flag.String("output", ".", "Output directory for the summary workbook")
	prefixFlag := flag.String("prefix", cfg.OutputPrefix, "Output file name prefix")
	ledgerFlag := flag.Bool("ledger", false, "Also write the normalized transactions as CSV")
	serveFlag := flag.Bool("serve", false, "Run the HTTP server")
	addrFlag := flag.String("addr", cfg.Addr, "Listen address for -serve")
	resultsFlag := flag.String("results", cfg.ResultDir, "Result directory for -serve")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `sheetsift - bank export summarizer
by Insight Delivered

Normalizes .xlsx exports from Lithuanian banks and writes a summary
workbook with income, expense and yearly total sheets.

Usage:
  sheetsift -bank=<bank> [flags] <export.xlsx> [export2.xlsx ...]
  sheetsift -serve [-addr=:8080]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Convert one SEB export into the current directory
  sheetsift -bank=seb israsas.xlsx

  # Custom output directory plus a CSV of every transaction
  sheetsift -bank=swedbank -output=out -ledger israsas.xlsx

  # Run the web API
  sheetsift -serve -addr=:9000

Environment:
  %s, %s, %s, %s,
  %s, %s, %s, %s,
  %s, %s
`, config.EnvAddr, config.EnvResultDir, config.EnvOutputPrefix, config.EnvDeleteAfter,
			config.EnvBodyLimit, config.EnvGCSBucket, config.EnvGCSPrefix, config.EnvLogLevel,
			config.EnvLogFormat, config.EnvPurgeOnStart)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("sheetsift v%s\n", version)
		os.Exit(0)
	}

	cfg.Addr = *addrFlag
	cfg.ResultDir = *resultsFlag
	cfg.OutputPrefix = *prefixFlag
	if err := cfg.Validate(); err != nil {
		fatalf("Invalid configuration: %v\n", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fatalf("%v\n", err)
	}

	if *serveFlag {
		if err := serve(cfg, log); err != nil {
			log.Error().Err(err).Msg("server stopped")
			os.Exit(1)
		}
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *bankFlag == "" {
		fatalf("Missing -bank. Supported: seb, swedbank, luminor, revolut, siauliu, paysera, citadele\n")
	}

	if err := os.MkdirAll(*outputFlag, 0o755); err != nil {
		fatalf("Cannot create output directory: %v\n", err)
	}

	svc := converter.NewService(nil, cfg.OutputPrefix, log)
	inputFiles := flag.Args()
	for _, inputPath := range inputFiles {
		opts := fileOptions{
			bank:      *bankFlag,
			outputDir: *outputFlag,
			ledger:    *ledgerFlag,
			suffix:    len(inputFiles) > 1,
		}
		if err := processFile(svc, inputPath, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

type fileOptions struct {
	bank      string
	outputDir string
	ledger    bool
	suffix    bool // add the input name so several inputs do not collide
}

func processFile(svc *converter.Service, inputPath string, opts fileOptions) error {
	req, err := converter.ParseRequest(opts.bank, filepath.Base(inputPath), nil)
	if err != nil {
		return err
	}

	req.Data, err = os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("input file not readable: %w", err)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	conv, err := svc.Run(context.Background(), req)
	if err != nil {
		return err
	}
	report := conv.Report

	fmt.Printf("  Using %s parser, format %s\n", report.BankName, report.Variant)
	fmt.Printf("  Read %d row(s), %d transaction(s)\n", conv.Rows, report.Transactions)
	if conv.Skipped > 0 {
		fmt.Printf("  Skipped %d row(s) without a usable amount or direction\n", conv.Skipped)
	}
	if report.Undated > 0 {
		fmt.Printf("  Warning: %d transaction(s) have no readable date and are left out of yearly sums\n", report.Undated)
	}

	name := svc.OutputName(report.BankName)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if opts.suffix {
		name = strings.TrimSuffix(name, models.WorkbookExtension) + "_" + base + models.WorkbookExtension
	}
	outPath := filepath.Join(opts.outputDir, name)

	xw := &writer.XLSXWriter{}
	if err := xw.WriteToFile(outPath, report); err != nil {
		return fmt.Errorf("workbook write failed: %w", err)
	}
	fmt.Printf("  Output: %s\n", outPath)

	if opts.ledger {
		ledgerPath := filepath.Join(opts.outputDir, base+".csv")
		lw := &writer.LedgerWriter{IncludeHeader: true}
		if err := lw.WriteToFile(ledgerPath, conv.Ledger); err != nil {
			return fmt.Errorf("ledger write failed: %w", err)
		}
		fmt.Printf("  Ledger: %s\n", ledgerPath)
	}

	credit, debit := report.Totals()
	fmt.Printf("  Income: %s, expenses: %s, years: %v\n", credit.StringFixed(2), debit.StringFixed(2), report.Years)
	fmt.Println("  Done.")
	return nil
}

func serve(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	sched := cleanup.New(store, log)
	h := &api.Handler{
		Converter:   converter.NewService(store, cfg.OutputPrefix, log),
		Store:       store,
		Cleanup:     sched,
		Log:         log,
		DeleteAfter: cfg.DeleteAfter,
		Version:     version,
	}
	app := api.NewApp(h, cfg.BodyLimit)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("version", version).Msg("listening")
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		sched.Stop()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	n := sched.Flush(flushCtx)
	sched.Stop()
	log.Info().Int("deleted", n).Msg("pending results removed")

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (storage.Store, func(), error) {
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("bucket", cfg.GCSBucket).Str("prefix", cfg.GCSPrefix).Msg("storing results in GCS")
		return gcs, func() { gcs.Close() }, nil
	}

	local, err := storage.NewLocalStore(cfg.ResultDir)
	if err != nil {
		return nil, nil, err
	}
	if cfg.PurgeOnStart {
		n, err := local.Purge(0)
		if err != nil {
			log.Warn().Err(err).Msg("startup cleanup failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Msg("removed stale results")
		}
	}
	log.Info().Str("dir", local.Root()).Msg("storing results locally")
	return local, func() {}, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
