// Package pdftext flattens a PDF statement into plain text: pages in order,
// words separated by single spaces, rows by a double space, pages by a newline.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

// DefaultMaxConcurrent bounds simultaneous decodes per Extractor.
const DefaultMaxConcurrent = 4

// Extractor owns the rendering backend. The backend is built lazily, once,
// no matter how many imports race to use it.
type Extractor struct {
	logger        *slog.Logger
	factory       BackendFactory
	maxConcurrent int64

	once    sync.Once
	backend Backend
	slots   *semaphore.Weighted
	initErr error
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBackendFactory replaces the ledongthuc backend.
func WithBackendFactory(f BackendFactory) Option {
	return func(e *Extractor) { e.factory = f }
}

// WithMaxConcurrent sets how many documents may decode at once.
func WithMaxConcurrent(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxConcurrent = int64(n)
		}
	}
}

// NewExtractor creates an extractor. Nothing is initialised until the first
// Extract call.
func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		logger:        logger,
		factory:       NewLedongthucBackend,
		maxConcurrent: DefaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) init() error {
	e.once.Do(func() {
		e.backend, e.initErr = e.factory()
		e.slots = semaphore.NewWeighted(e.maxConcurrent)
		if e.initErr == nil {
			e.logger.Debug("pdf backend initialised", "max_concurrent", e.maxConcurrent)
		}
	})
	return e.initErr
}

// Extract returns the document text. Any failure to open or render the PDF is
// reported as *statement.DocumentReadError.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (string, error) {
	if err := e.init(); err != nil {
		return "", &statement.DocumentReadError{Err: fmt.Errorf("init pdf backend: %w", err)}
	}
	if err := e.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer e.slots.Release(1)

	return e.extract(ctx, r, size)
}

// ExtractBytes is Extract over an in-memory file.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) (string, error) {
	return e.Extract(ctx, bytes.NewReader(data), int64(len(data)))
}

func (e *Extractor) extract(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	// The rendering library panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = &statement.DocumentReadError{Err: fmt.Errorf("pdf backend panic: %v", rec)}
		}
	}()

	doc, err := e.backend.Open(r, size)
	if err != nil {
		return "", &statement.DocumentReadError{Err: err}
	}

	n := doc.NumPages()
	if n == 0 {
		return "", &statement.DocumentReadError{Err: fmt.Errorf("document has no pages")}
	}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := doc.PageRows(i)
		if err != nil {
			return "", &statement.DocumentReadError{Err: err}
		}
		pages = append(pages, PageText(rows))
	}

	text = strings.Join(pages, "\n")
	e.logger.Debug("pdf text extracted", "pages", n, "chars", len(text))
	return text, nil
}

// PageText joins one page's rows. Glyphs that touch are merged into words,
// words are joined by a space and each row break becomes an empty run, which
// leaves a double space between rows.
func PageText(rows [][]TextRun) string {
	var runs []string
	for _, row := range rows {
		words := mergeWords(row)
		if len(words) == 0 {
			continue
		}
		if len(runs) > 0 {
			runs = append(runs, "")
		}
		runs = append(runs, words...)
	}
	return strings.Join(runs, " ")
}

func mergeWords(row []TextRun) []string {
	var (
		words []string
		cur   strings.Builder
		prev  *TextRun
	)
	flush := func() {
		if w := strings.TrimSpace(cur.String()); w != "" {
			words = append(words, w)
		}
		cur.Reset()
	}

	for i := range row {
		run := &row[i]
		if strings.TrimSpace(run.Text) == "" {
			flush()
			prev = nil
			continue
		}
		if prev != nil && !adjacent(*prev, *run) {
			flush()
		}
		cur.WriteString(run.Text)
		prev = run
	}
	flush()
	return words
}

// adjacent reports whether two runs on one row belong to the same word. The
// gap is measured both ways so right-to-left glyph order also merges.
func adjacent(a, b TextRun) bool {
	if a.Width == 0 && b.Width == 0 {
		return false
	}
	gap := math.Min(math.Abs(b.X-(a.X+a.Width)), math.Abs(a.X-(b.X+b.Width)))
	return gap <= wordGap(a, b)
}

func wordGap(a, b TextRun) float64 {
	size := math.Max(a.FontSize, b.FontSize)
	if size <= 0 {
		size = 10
	}
	return size * 0.2
}
