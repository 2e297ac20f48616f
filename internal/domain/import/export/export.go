// Package export writes expanded ledger entries as CSV or XLSX so a statement
// preview can be opened in a spreadsheet.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Row is one ledger entry as it appears in an export.
type Row struct {
	Date           string `csv:"date"`
	Name           string `csv:"name"`
	Amount         string `csv:"amount"`
	Category       string `csv:"category"`
	Type           string `csv:"type"`
	PaymentDetails string `csv:"payment_details"`
}

// Rows converts ledger entries, keeping their order.
func Rows(txs []statement.ExpandedTransaction) []Row {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		row := Row{
			Date:     tx.Date.Format(statement.ISODateLayout),
			Name:     tx.Name,
			Amount:   tx.Amount.StringFixed(2),
			Category: tx.Category,
			Type:     string(tx.Type),
		}
		if tx.PaymentDetails != nil {
			row.PaymentDetails = *tx.PaymentDetails
		}
		rows = append(rows, row)
	}
	return rows
}

// Write encodes txs in the given format.
func Write(w io.Writer, f Format, sheet string, txs []statement.ExpandedTransaction) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, txs)
	case FormatXLSX:
		return WriteXLSX(w, sheet, txs)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteCSV writes a header row followed by one row per entry.
func WriteCSV(w io.Writer, txs []statement.ExpandedTransaction) error {
	rows := Rows(txs)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

var xlsxHeader = []any{"Date", "Name", "Amount", "Category", "Type", "Payment details"}

// WriteXLSX writes a single-sheet workbook. Amounts are stored as numbers so
// the spreadsheet can sum them.
func WriteXLSX(w io.Writer, sheet string, txs []statement.ExpandedTransaction) error {
	sheet = sheetName(sheet)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := xlsxHeader
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, tx := range txs {
		amount, _ := tx.Amount.Float64()
		details := ""
		if tx.PaymentDetails != nil {
			details = *tx.PaymentDetails
		}
		row := []any{
			tx.Date.Format(statement.ISODateLayout),
			tx.Name,
			amount,
			tx.Category,
			string(tx.Type),
			details,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

var sheetNameReplacer = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// sheetName makes name acceptable to Excel: no reserved characters, at most 31 runes.
func sheetName(name string) string {
	name = strings.Trim(sheetNameReplacer.Replace(name), "' ")
	if name == "" {
		return "Statement"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
