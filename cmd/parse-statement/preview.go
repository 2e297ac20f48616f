package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/export"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/pdftext"
	importservice "github.com/FACorreiaa/expense-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/sniffer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/summary"
	"github.com/FACorreiaa/expense-tracker/pkg/money"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = string(export.FormatCSV)
	formatXLSX  = string(export.FormatXLSX)
)

type previewOptions struct {
	Format string
	Raw    bool
}

type textExtractor interface {
	ExtractBytes(ctx context.Context, data []byte) (string, error)
}

type previewer struct {
	extractor textExtractor
	parser    *parser.Parser
	svc       *importservice.ImportService
	out       io.Writer
	logger    *slog.Logger
}

func newLogger(debug bool) *slog.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "parse-statement",
		Level:           level,
	})
	return slog.New(handler)
}

func newPreviewer(logger *slog.Logger, out io.Writer) *previewer {
	return newPreviewerWith(pdftext.NewExtractor(logger), logger, out)
}

func newPreviewerWith(extractor textExtractor, logger *slog.Logger, out io.Writer) *previewer {
	p := parser.NewParser(parser.DefaultConfig())
	return &previewer{
		extractor: extractor,
		parser:    p,
		// Preview never touches the repository.
		svc:    importservice.NewImportService(nil, extractor, p, logger),
		out:    out,
		logger: logger,
	}
}

func (p *previewer) run(ctx context.Context, paths []string, opts previewOptions) error {
	switch opts.Format {
	case formatTable, formatJSON, formatCSV:
	case formatXLSX:
		if len(paths) > 1 {
			return fmt.Errorf("xlsx output takes a single statement")
		}
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}

	failed := 0
	for _, path := range paths {
		if err := p.previewFile(ctx, path, opts); err != nil {
			p.logger.Error("failed to parse statement", slog.String("file", path), slog.Any("error", err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d statements failed", failed, len(paths))
	}
	return nil
}

func (p *previewer) previewFile(ctx context.Context, path string, opts previewOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", path, err)
	}

	if opts.Raw {
		return p.printRaw(ctx, path, data, opts.Format)
	}

	result, err := p.svc.Preview(ctx, uuid.Nil, data)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		p.logger.Warn(err.Error(), slog.String("file", path))
	}

	switch opts.Format {
	case formatJSON:
		return p.writeJSON(path, result.ReportDate, result.Transactions)
	case formatCSV, formatXLSX:
		return export.Write(p.out, export.Format(opts.Format), result.ReportName, result.Transactions)
	}

	fmt.Fprintf(p.out, "%s  %s (%s)\n", path, result.ReportName, result.ReportDate.Format(statement.ISODateLayout))
	fmt.Fprintf(p.out, "parsed %d (foreign %d, domestic %d), expanded %d, skipped lines %d\n",
		result.Parsed, result.Foreign, result.Domestic, result.Expanded, result.SkippedLines)
	if err := p.writeTable(result.Transactions); err != nil {
		return err
	}
	rc := statement.NewReportContext(result.ReportDate)
	return p.writeSummary(summary.Build(rc, result.Transactions, 0))
}

func (p *previewer) printRaw(ctx context.Context, path string, data []byte, format string) error {
	if _, err := sniffer.DetectKind(data); err != nil {
		return err
	}
	text, err := p.extractor.ExtractBytes(ctx, data)
	if err != nil {
		return err
	}
	parsed, err := p.parser.Parse(text)
	if err != nil {
		return err
	}

	txs := make([]statement.ExpandedTransaction, 0, len(parsed.Transactions()))
	for _, tx := range parsed.Transactions() {
		txs = append(txs, statement.ExpandedTransaction(tx))
	}
	switch format {
	case formatJSON:
		return p.writeJSON(path, parsed.Report.ReportDate, txs)
	case formatCSV, formatXLSX:
		return export.Write(p.out, export.Format(format), parsed.Report.ReportName(), txs)
	}
	return p.writeTable(txs)
}

func (p *previewer) dumpText(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", path, err)
	}
	if _, err := sniffer.DetectKind(data); err != nil {
		return err
	}
	text, err := p.extractor.ExtractBytes(ctx, data)
	if err != nil {
		return err
	}

	layout := sniffer.DetectLayout(text, p.parser.Markers())
	p.logger.Info("layout",
		slog.Bool("report_date", layout.HasReportDate),
		slog.Bool("foreign", layout.HasForeign),
		slog.Bool("domestic", layout.HasDomestic),
		slog.Bool("recognised", layout.Recognised()),
	)
	_, err = io.WriteString(p.out, text+"\n")
	return err
}

func (p *previewer) writeTable(txs []statement.ExpandedTransaction) error {
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tNAME\tAMOUNT\tCATEGORY\tTYPE\tDETAILS")

	amounts := make([]decimal.Decimal, 0, len(txs))
	for _, tx := range txs {
		details := ""
		if tx.PaymentDetails != nil {
			details = *tx.PaymentDetails
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Date.Format(statement.ISODateLayout), tx.Name, tx.Amount.StringFixed(2), tx.Category, tx.Type, details)
		amounts = append(amounts, tx.Amount)
	}
	fmt.Fprintf(tw, "\t\t%s\t\t\t\n", money.Sum(money.ILS, amounts...).Display())
	return tw.Flush()
}

func (p *previewer) writeSummary(s *summary.Summary) error {
	fmt.Fprintf(p.out, "\nbilled this month: %s over %d entries (earlier months %s, later months %s)\n",
		money.New(s.BilledMinor, money.ILS).Display(), s.BilledCount,
		money.New(s.EarlierMinor, money.ILS).Display(), money.New(s.LaterMinor, money.ILS).Display())

	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tENTRIES\tSHARE")
	for _, c := range s.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f%%\n", c.Category, money.New(c.AmountMinor, money.ILS).Display(), c.TxCount, c.Share*100)
	}
	return tw.Flush()
}

type jsonTransaction struct {
	Date           string  `json:"date"`
	Name           string  `json:"name"`
	Amount         string  `json:"amount"`
	Category       string  `json:"category"`
	Type           string  `json:"type"`
	PaymentDetails *string `json:"payment_details,omitempty"`
}

func (p *previewer) writeJSON(path string, reportDate time.Time, txs []statement.ExpandedTransaction) error {
	out := struct {
		File         string            `json:"file"`
		ReportDate   string            `json:"report_date"`
		Transactions []jsonTransaction `json:"transactions"`
	}{
		File:         path,
		ReportDate:   reportDate.Format(statement.ISODateLayout),
		Transactions: make([]jsonTransaction, 0, len(txs)),
	}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, jsonTransaction{
			Date:           tx.Date.Format(statement.ISODateLayout),
			Name:           tx.Name,
			Amount:         tx.Amount.StringFixed(2),
			Category:       tx.Category,
			Type:           string(tx.Type),
			PaymentDetails: tx.PaymentDetails,
		})
	}

	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
