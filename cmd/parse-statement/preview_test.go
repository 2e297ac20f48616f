package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement/statementtest"
)

type stubExtractor struct{ text string }

func (s stubExtractor) ExtractBytes(context.Context, []byte) (string, error) {
	return s.text, nil
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600))
	return path
}

func testPreviewer(out io.Writer) *previewer {
	rc := statement.NewReportContext(statement.Date(2025, 4, 2))
	details := statementtest.InstallmentDetails(1, 3)
	text := statementtest.StatementText(rc,
		statement.ParsedTransaction{
			Date:     statement.Date(2025, 4, 1),
			Name:     "סופר כהן",
			Amount:   decimal.RequireFromString("100.00"),
			Category: "מזון",
		},
		statement.ParsedTransaction{
			Date:           statement.Date(2025, 3, 5),
			Name:           "מחסני חשמל",
			Amount:         decimal.RequireFromString("50.00"),
			Category:       "קניות",
			PaymentDetails: &details,
		},
	)
	return newPreviewerWith(stubExtractor{text: text}, slog.New(slog.NewTextHandler(io.Discard, nil)), out)
}

func TestPreviewer_JSON(t *testing.T) {
	var out bytes.Buffer
	path := writePDF(t)

	require.NoError(t, testPreviewer(&out).run(context.Background(), []string{path}, previewOptions{Format: formatJSON}))

	var got struct {
		ReportDate   string `json:"report_date"`
		Transactions []struct {
			Date           string  `json:"date"`
			Amount         string  `json:"amount"`
			PaymentDetails *string `json:"payment_details"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "2025-04-02", got.ReportDate)
	// One same-month purchase plus installments 1 and 2 of 3.
	require.Len(t, got.Transactions, 3)
	assert.Equal(t, "2025-04-05", got.Transactions[2].Date)
	require.NotNil(t, got.Transactions[2].PaymentDetails)
	assert.Equal(t, "installment 2 of 3", *got.Transactions[2].PaymentDetails)
}

func TestPreviewer_Raw(t *testing.T) {
	var out bytes.Buffer
	path := writePDF(t)

	require.NoError(t, testPreviewer(&out).run(context.Background(), []string{path}, previewOptions{Format: formatJSON, Raw: true}))

	var got struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Len(t, got.Transactions, 2)
}

func TestPreviewer_Table(t *testing.T) {
	var out bytes.Buffer
	path := writePDF(t)

	require.NoError(t, testPreviewer(&out).run(context.Background(), []string{path}, previewOptions{Format: formatTable}))
	assert.Contains(t, out.String(), "Credit Card Report 4/2025")
	assert.Contains(t, out.String(), "installment 1 of 3")
	assert.Contains(t, out.String(), "200.00")
	assert.Contains(t, out.String(), "billed this month")
	assert.Contains(t, out.String(), "CATEGORY")
}

func TestPreviewer_CSV(t *testing.T) {
	var out bytes.Buffer
	path := writePDF(t)

	require.NoError(t, testPreviewer(&out).run(context.Background(), []string{path}, previewOptions{Format: formatCSV}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,name,amount,category,type,payment_details", lines[0])
	assert.Equal(t, "2025-04-05,מחסני חשמל,50.00,קניות,domestic,installment 2 of 3", lines[3])
}

func TestPreviewer_XLSX(t *testing.T) {
	var out bytes.Buffer
	p := testPreviewer(&out)

	require.NoError(t, p.run(context.Background(), []string{writePDF(t)}, previewOptions{Format: formatXLSX}))
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("PK")), "xlsx is a zip archive")

	err := p.run(context.Background(), []string{writePDF(t), writePDF(t)}, previewOptions{Format: formatXLSX})
	assert.ErrorContains(t, err, "single statement")
}

func TestPreviewer_Errors(t *testing.T) {
	var out bytes.Buffer
	p := testPreviewer(&out)

	err := p.run(context.Background(), []string{"/does/not/exist.pdf"}, previewOptions{Format: formatTable})
	assert.ErrorContains(t, err, "1 of 1 statements failed")

	err = p.run(context.Background(), []string{writePDF(t)}, previewOptions{Format: "yaml"})
	assert.ErrorContains(t, err, "unknown format")
}

func TestPreviewer_DumpText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, testPreviewer(&out).dumpText(context.Background(), writePDF(t)))
	assert.Contains(t, out.String(), "עסקאות בארץ")
}
