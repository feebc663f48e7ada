// Package converter runs one bank export through detection,
// normalization, aggregation and workbook emission.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/sheetsift/internal/aggregate"
	"github.com/insightdelivered/sheetsift/internal/extractor"
	"github.com/insightdelivered/sheetsift/internal/logger"
	"github.com/insightdelivered/sheetsift/internal/models"
	"github.com/insightdelivered/sheetsift/internal/parser"
	"github.com/insightdelivered/sheetsift/internal/storage"
	"github.com/insightdelivered/sheetsift/internal/writer"
)

// GenericMessage is the user-facing text of every failure.
const GenericMessage = "processing failed, try again"

// Request is one validated upload.
type Request struct {
	Bank     models.BankType
	Filename string
	Data     []byte
}

// ParseRequest validates the bank selector and file extension. Nothing is
// parsed here, so a wrong file type is reported before any read attempt.
func ParseRequest(bank, filename string, data []byte) (Request, error) {
	b, err := models.ParseBankType(bank)
	if err != nil {
		return Request{}, err
	}
	if !strings.EqualFold(filepath.Ext(filename), models.WorkbookExtension) {
		return Request{}, models.Errorf(models.KindWrongFileType,
			"%q is not an %s workbook", filename, models.WorkbookExtension)
	}
	return Request{Bank: b, Filename: filename, Data: data}, nil
}

// Conversion is the in-memory result of one run.
type Conversion struct {
	Report  *models.Report
	Ledger  *models.Ledger
	Rows    int
	Skipped int
}

// Result describes a stored workbook.
type Result struct {
	Artifact storage.Artifact `json:"artifact"`
	Report   *models.Report   `json:"report"`
}

// Service converts uploads and stores the produced workbooks.
type Service struct {
	store  storage.Store
	prefix string
	log    zerolog.Logger
	xlsx   writer.XLSXWriter
}

// NewService creates a service saving into store. An empty prefix falls
// back to models.DefaultOutputPrefix.
func NewService(store storage.Store, prefix string, log zerolog.Logger) *Service {
	if prefix == "" {
		prefix = models.DefaultOutputPrefix
	}
	return &Service{
		store:  store,
		prefix: prefix,
		log:    log,
	}
}

// logFor prefers a request-scoped logger from ctx over the service one.
func (s *Service) logFor(ctx context.Context) zerolog.Logger {
	l := logger.FromContextOr(ctx, s.log)
	return l.With().Str("component", "converter").Logger()
}

// OutputName returns the download file name for a bank.
func (s *Service) OutputName(bankName string) string {
	return OutputName(s.prefix, bankName)
}

// OutputName builds "<prefix>_<BankName>.xlsx".
func OutputName(prefix, bankName string) string {
	return prefix + "_" + bankName + models.WorkbookExtension
}

// Run reads, detects, normalizes and aggregates one export.
func (s *Service) Run(ctx context.Context, req Request) (*Conversion, error) {
	start := time.Now()
	log := s.logFor(ctx)

	norm, err := parser.New(req.Bank)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := extractor.Read(bytes.NewReader(req.Data))
	if err != nil {
		return nil, models.Wrap(models.KindMalformedInput, err, req.Filename)
	}
	if len(table.Rows) == 0 {
		return nil, models.Errorf(models.KindEmptyInput, "%s has no data rows", req.Filename)
	}
	if table.UsableColumns() == 0 {
		return nil, models.Errorf(models.KindEmptyInput, "%s has no named columns", req.Filename)
	}

	format, err := norm.Detect(table.Headers)
	if err != nil {
		return nil, err
	}
	batch, err := norm.Normalize(table, format)
	if err != nil {
		return nil, models.Wrap(models.KindMalformedInput, err, norm.BankName())
	}

	report := aggregate.Build(batch.Transactions, format.Layout)
	report.Bank = norm.Bank()
	report.BankName = norm.BankName()
	report.Variant = format.ID

	log.Info().
		Str("bank", string(report.Bank)).
		Str("variant", report.Variant).
		Str("file", req.Filename).
		Int("rows", batch.Rows).
		Int("skipped", batch.Skipped).
		Int("transactions", report.Transactions).
		Int("undated", report.Undated).
		Dur("took", time.Since(start)).
		Msg("export normalized")

	return &Conversion{
		Report: report,
		Ledger: &models.Ledger{
			Bank:         report.Bank,
			BankName:     report.BankName,
			Variant:      report.Variant,
			Transactions: batch.Transactions,
		},
		Rows:    batch.Rows,
		Skipped: batch.Skipped,
	}, nil
}

// Convert returns the aggregated report for one export.
func (s *Service) Convert(ctx context.Context, req Request) (*models.Report, error) {
	c, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Report, nil
}

// Process converts the export and saves the workbook. Nothing is stored
// when conversion fails.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	if s.store == nil {
		return nil, errors.New("converter: no artifact store configured")
	}

	log := s.logFor(ctx)
	report, err := s.Convert(ctx, req)
	if err != nil {
		log.Warn().Err(err).
			Str("bank", string(req.Bank)).
			Str("file", req.Filename).
			Str("kind", string(models.KindOf(err))).
			Msg("conversion failed")
		return nil, err
	}

	name := s.OutputName(report.BankName)
	art, err := s.store.Save(ctx, name, func(w io.Writer) error {
		return s.xlsx.Write(w, report)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", name, err)
	}

	log.Info().Str("ref", art.Ref).Int64("size", art.Size).Msg("workbook stored")
	return &Result{Artifact: art, Report: report}, nil
}

// Outcome is the boundary view of a run: either a stored artifact or a
// failure kind with a message.
type Outcome struct {
	OK       bool              `json:"ok"`
	Artifact *storage.Artifact `json:"artifact,omitempty"`
	Kind     models.ErrorKind  `json:"kind,omitempty"`
	Message  string            `json:"message,omitempty"`
	Detail   string            `json:"detail,omitempty"`
}

// OutcomeOf folds a Process result into an Outcome.
func OutcomeOf(res *Result, err error) Outcome {
	if err != nil {
		return Outcome{
			Kind:    models.KindOf(err),
			Message: GenericMessage,
			Detail:  err.Error(),
		}
	}
	if res == nil {
		return Outcome{Kind: models.KindInternal, Message: GenericMessage}
	}
	art := res.Artifact
	return Outcome{OK: true, Artifact: &art}
}
