// Package service provides the import orchestration logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/installments"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/sniffer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
	"github.com/FACorreiaa/expense-tracker/pkg/metrics"
	"github.com/FACorreiaa/expense-tracker/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/expense-tracker/internal/domain/import/service"

// DefaultTimeout bounds a whole import when WithTimeout is not used.
const DefaultTimeout = 30 * time.Second

// TextExtractor turns PDF bytes into page-ordered text.
type TextExtractor interface {
	ExtractBytes(ctx context.Context, data []byte) (string, error)
}

// OverrideSource loads a user's category corrections.
type OverrideSource interface {
	GetOverridesForUser(ctx context.Context, userID uuid.UUID) (normalizer.Overrides, error)
}

// ImportResult contains the result of an import or preview
type ImportResult struct {
	ReportID    uuid.UUID
	ReportName  string
	ReportDate  time.Time
	FileID      *uuid.UUID
	Fingerprint string

	Parsed       int
	Expanded     int
	Imported     int
	Foreign      int
	Domestic     int
	SkippedLines int

	// NoTransactions is set when both sections were empty. No report is
	// created in that case.
	NoTransactions bool

	Transactions []statement.ExpandedTransaction
}

// Err returns statement.ErrNoTransactionsFound for an empty statement.
func (r *ImportResult) Err() error {
	if r != nil && r.NoTransactions {
		return statement.ErrNoTransactionsFound
	}
	return nil
}

// ImportService orchestrates credit-card statement imports
type ImportService struct {
	repo      repository.ImportRepository
	extractor TextExtractor
	parser    *parser.Parser
	files     storage.Storage // Optional: originals are not archived when nil
	overrides OverrideSource  // Optional
	metrics   *metrics.ImportMetrics
	tracer    trace.Tracer
	timeout   time.Duration
	logger    *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(repo repository.ImportRepository, extractor TextExtractor, p *parser.Parser, logger *slog.Logger) *ImportService {
	if p == nil {
		p = parser.NewParser(parser.DefaultConfig())
	}
	return &ImportService{
		repo:      repo,
		extractor: extractor,
		parser:    p,
		tracer:    otel.Tracer(tracerName),
		timeout:   DefaultTimeout,
		logger:    logger,
	}
}

// WithFileStorage archives each imported statement
func (s *ImportService) WithFileStorage(files storage.Storage) *ImportService {
	s.files = files
	return s
}

// WithOverrides applies user category corrections to domestic transactions
func (s *ImportService) WithOverrides(src OverrideSource) *ImportService {
	s.overrides = src
	return s
}

func (s *ImportService) WithMetrics(m *metrics.ImportMetrics) *ImportService {
	s.metrics = m
	return s
}

func (s *ImportService) WithTracer(t trace.Tracer) *ImportService {
	s.tracer = t
	return s
}

// WithTimeout bounds each pipeline run; zero disables the bound.
func (s *ImportService) WithTimeout(d time.Duration) *ImportService {
	s.timeout = d
	return s
}

// Parser exposes the statement parser, mainly for its taxonomy.
func (s *ImportService) Parser() *parser.Parser {
	return s.parser
}

// analysis is the persistence-free part of the pipeline.
type analysis struct {
	report   statement.ReportContext
	parsed   *parser.ParseResult
	expanded []statement.ExpandedTransaction
	layout   *sniffer.Layout
}

// Preview runs the pipeline without writing anything. ownerID may be uuid.Nil,
// in which case no category overrides are applied.
func (s *ImportService) Preview(ctx context.Context, ownerID uuid.UUID, data []byte) (result *ImportResult, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "import.Preview")
	defer endSpan(span, &err)

	start := time.Now()
	defer func() { s.metrics.ObserveImport(outcomeFor(metrics.OutcomePreview, result, err), time.Since(start)) }()

	a, err := s.analyze(ctx, ownerID, data)
	if err != nil {
		return nil, err
	}
	return s.resultFrom(a), nil
}

// ImportStatement runs the full pipeline for one PDF and persists the report
// and its expenses. An empty statement is not an error here; check result.Err.
func (s *ImportService) ImportStatement(ctx context.Context, ownerID uuid.UUID, fileName string, data []byte) (result *ImportResult, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "import.ImportStatement",
		trace.WithAttributes(
			attribute.String("owner_id", ownerID.String()),
			attribute.Int("file.size", len(data)),
		),
	)
	defer endSpan(span, &err)

	start := time.Now()
	defer func() { s.metrics.ObserveImport(outcomeFor(metrics.OutcomeImported, result, err), time.Since(start)) }()

	a, err := s.analyze(ctx, ownerID, data)
	if err != nil {
		return nil, err
	}

	result = s.resultFrom(a)
	if result.NoTransactions {
		s.logger.Info("statement has no transactions, nothing imported",
			slog.String("owner_id", ownerID.String()),
			slog.String("report_date", a.report.ISODate()),
		)
		return result, nil
	}

	result.FileID = s.archive(ctx, ownerID, fileName, data)

	report := &repository.Report{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Name:            a.report.ReportName(),
		ReportDate:      a.report.ReportDate,
		StatementFileID: result.FileID,
		Status:          repository.ReportStatusPending,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		s.discardArchive(ctx, ownerID, result.FileID)
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	result.ReportID = report.ID

	expenses := make([]repository.Expense, 0, len(a.expanded))
	for _, tx := range a.expanded {
		expenses = append(expenses, repository.NewExpense(ownerID, report.ID, a.report, tx))
	}

	n, err := s.repo.InsertExpenses(ctx, report.ID, expenses)
	if err != nil {
		s.logger.Error("expense insert failed after report was created",
			slog.String("report_id", report.ID.String()),
			slog.Int("expenses", len(expenses)),
			slog.Any("error", err),
		)
		msg := err.Error()
		// The request context may already be gone; the status update must still land.
		markCtx, markCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer markCancel()
		if markErr := s.repo.MarkReportStatus(markCtx, report.ID, repository.ReportStatusPartial, &msg); markErr != nil {
			s.logger.Error("failed to mark report partial",
				slog.String("report_id", report.ID.String()),
				slog.Any("error", markErr),
			)
		}
		return result, &statement.PartialImportError{ReportID: report.ID, Err: err}
	}
	result.Imported = n

	s.logger.Info("statement imported",
		slog.String("owner_id", ownerID.String()),
		slog.String("report_id", report.ID.String()),
		slog.String("report_date", a.report.ISODate()),
		slog.Int("parsed", result.Parsed),
		slog.Int("expanded", result.Expanded),
		slog.Int("imported", n),
	)
	return result, nil
}

// analyze runs sniff, extract, parse, override and expand.
func (s *ImportService) analyze(ctx context.Context, ownerID uuid.UUID, data []byte) (*analysis, error) {
	kind, err := sniffer.DetectKind(data)
	if err != nil {
		return nil, err
	}

	text, err := s.extract(ctx, data)
	if err != nil {
		return nil, err
	}

	layout := sniffer.DetectLayout(text, s.parser.Markers())
	s.logger.Debug("statement layout",
		slog.String("pdf_version", kind.Version),
		slog.Bool("foreign", layout.HasForeign),
		slog.Bool("domestic", layout.HasDomestic),
		slog.String("fingerprint", layout.Fingerprint),
	)

	_, span := s.tracer.Start(ctx, "import.parse")
	parsed, err := s.parser.Parse(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("transactions.foreign", len(parsed.Foreign)),
		attribute.Int("transactions.domestic", len(parsed.Domestic)),
		attribute.Int("lines.skipped", parsed.SkippedLines),
	)
	span.End()

	s.metrics.AddTransactions("parsed", string(statement.TypeForeign), len(parsed.Foreign))
	s.metrics.AddTransactions("parsed", string(statement.TypeDomestic), len(parsed.Domestic))
	s.metrics.AddSkippedLines(parsed.SkippedLines)

	a := &analysis{report: parsed.Report, parsed: parsed, layout: layout}
	if parsed.Empty() {
		return a, nil
	}

	s.applyOverrides(ctx, ownerID, parsed.Domestic)

	a.expanded = installments.Expand(parsed.Transactions(), parsed.Report)
	for _, tx := range a.expanded {
		s.metrics.AddTransactions("expanded", string(tx.Type), 1)
	}
	return a, nil
}

func (s *ImportService) extract(ctx context.Context, data []byte) (string, error) {
	ctx, span := s.tracer.Start(ctx, "import.extract")
	defer span.End()

	text, err := s.extractor.ExtractBytes(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// Cancellation is reported as such, everything else means the file is unreadable.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var readErr *statement.DocumentReadError
		if errors.As(err, &readErr) {
			return "", err
		}
		return "", &statement.DocumentReadError{Err: err}
	}
	return text, nil
}

// applyOverrides rewrites categories in place. Lookup failures leave the
// parsed categories untouched.
func (s *ImportService) applyOverrides(ctx context.Context, ownerID uuid.UUID, txs []statement.ParsedTransaction) {
	if s.overrides == nil || ownerID == uuid.Nil || len(txs) == 0 {
		return
	}

	ov, err := s.overrides.GetOverridesForUser(ctx, ownerID)
	if err != nil {
		s.logger.Warn("failed to load category overrides, using parsed categories",
			slog.String("owner_id", ownerID.String()),
			slog.Any("error", err),
		)
		return
	}

	applied := 0
	for i := range txs {
		if cat, ok := ov.CategoryFor(txs[i].Name); ok {
			txs[i].Category = cat
			applied++
		}
	}
	if applied > 0 {
		s.logger.Debug("applied category overrides", slog.Int("count", applied))
	}
}

func (s *ImportService) archive(ctx context.Context, ownerID uuid.UUID, fileName string, data []byte) *uuid.UUID {
	if s.files == nil {
		return nil
	}
	info, err := s.files.Upload(ctx, ownerID, fileName, "application/pdf", bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("failed to archive statement, importing without it",
			slog.String("owner_id", ownerID.String()),
			slog.Any("error", err),
		)
		return nil
	}
	return &info.ID
}

func (s *ImportService) discardArchive(ctx context.Context, ownerID uuid.UUID, fileID *uuid.UUID) {
	if s.files == nil || fileID == nil {
		return
	}
	if err := s.files.Delete(context.WithoutCancel(ctx), ownerID, *fileID); err != nil {
		s.logger.Warn("failed to remove orphaned statement file",
			slog.String("file_id", fileID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *ImportService) resultFrom(a *analysis) *ImportResult {
	r := &ImportResult{
		ReportName:     a.report.ReportName(),
		ReportDate:     a.report.ReportDate,
		Fingerprint:    a.layout.Fingerprint,
		Parsed:         len(a.parsed.Foreign) + len(a.parsed.Domestic),
		Expanded:       len(a.expanded),
		Foreign:        len(a.parsed.Foreign),
		Domestic:       len(a.parsed.Domestic),
		SkippedLines:   a.parsed.SkippedLines,
		NoTransactions: a.parsed.Empty(),
		Transactions:   a.expanded,
	}
	return r
}

func (s *ImportService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}

func outcomeFor(success string, result *ImportResult, err error) string {
	switch {
	case err == nil && result != nil && result.NoTransactions:
		return metrics.OutcomeNoTransactions
	case err == nil:
		return success
	case errors.Is(err, sniffer.ErrNotPDF):
		return metrics.OutcomeNotPDF
	case errors.Is(err, statement.ErrDocumentRead):
		return metrics.OutcomeUnreadable
	case errors.Is(err, statement.ErrMissingReportDate):
		return metrics.OutcomeMissingDate
	case errors.Is(err, statement.ErrPartialImport):
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeError
	}
}
