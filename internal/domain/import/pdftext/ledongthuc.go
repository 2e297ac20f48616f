package pdftext

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// LedongthucBackend renders pages with github.com/ledongthuc/pdf.
type LedongthucBackend struct{}

// NewLedongthucBackend is the default BackendFactory.
func NewLedongthucBackend() (Backend, error) {
	return LedongthucBackend{}, nil
}

func (LedongthucBackend) Open(r io.ReaderAt, size int64) (Document, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &ledongthucDocument{r: reader}, nil
}

type ledongthucDocument struct {
	r *pdf.Reader
}

func (d *ledongthucDocument) NumPages() int {
	return d.r.NumPage()
}

func (d *ledongthucDocument) PageRows(page int) ([][]TextRun, error) {
	p := d.r.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	out := make([][]TextRun, 0, len(rows))
	for _, row := range rows {
		runs := make([]TextRun, 0, len(row.Content))
		for _, t := range row.Content {
			runs = append(runs, TextRun{
				Text:     t.S,
				X:        t.X,
				Y:        t.Y,
				Width:    t.W,
				FontSize: t.FontSize,
			})
		}
		out = append(out, runs)
	}
	return out, nil
}
