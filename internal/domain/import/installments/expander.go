// Package installments rebuilds the monthly ledger view from one statement:
// installment purchases become one entry per elapsed month and single charges
// from earlier months are repeated in the report month.
package installments

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

// AdditionalCharge marks the report-month copy of an earlier single charge.
const AdditionalCharge = "additional charge"

var (
	annotationRe = regexp.MustCompile(`(\d+)\s*מתוך\s*(\d+)`)
	labelRe      = regexp.MustCompile(`^installment (\d+) of (\d+)$`)
)

// Label renders the payment details of the i-th (1-based) of n installments.
func Label(i, n int) string {
	return fmt.Sprintf("installment %d of %d", i, n)
}

// ParseLabel is the inverse of Label. Raw bank annotations and
// AdditionalCharge are rejected.
func ParseLabel(details string) (i, n int, ok bool) {
	m := labelRe.FindStringSubmatch(details)
	if m == nil {
		return 0, 0, false
	}
	i, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	n, err = strconv.Atoi(m[2])
	if err != nil || i < 1 || n < i {
		return 0, 0, false
	}
	return i, n, true
}

// ParseAnnotation reads "K of N" out of a raw installment annotation.
func ParseAnnotation(details string) (current, total int, ok bool) {
	m := annotationRe.FindStringSubmatch(details)
	if m == nil {
		return 0, 0, false
	}
	current, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(m[2])
	if err != nil || total < 1 {
		return 0, 0, false
	}
	return current, total, true
}

// Expand turns parsed transactions into ledger entries relative to the report
// month. The output keeps input order; entries of one transaction are
// contiguous and ordered by date.
func Expand(txs []statement.ParsedTransaction, rc statement.ReportContext) []statement.ExpandedTransaction {
	out := make([]statement.ExpandedTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ExpandOne(tx, rc)...)
	}
	return out
}

// ExpandOne expands a single transaction.
//
// With a "K of N" annotation the purchase date is taken as the first charge
// and month i (0..N-1) is emitted while it does not pass the report month.
// Without one, a charge from before the report month is emitted as is plus a
// copy on the same day of the report month.
func ExpandOne(tx statement.ParsedTransaction, rc statement.ReportContext) []statement.ExpandedTransaction {
	if tx.PaymentDetails != nil {
		if _, total, ok := ParseAnnotation(*tx.PaymentDetails); ok {
			return expandInstallments(tx, total, rc)
		}
	}

	original := fromParsed(tx, tx.Date, tx.PaymentDetails)
	if statement.CompareMonth(tx.Date, rc.ReportDate) >= 0 {
		return []statement.ExpandedTransaction{original}
	}

	marker := AdditionalCharge
	copyDate := statement.InMonth(rc.ReportYear, rc.ReportDate.Month(), tx.Date.Day())
	return []statement.ExpandedTransaction{original, fromParsed(tx, copyDate, &marker)}
}

func expandInstallments(tx statement.ParsedTransaction, total int, rc statement.ReportContext) []statement.ExpandedTransaction {
	var out []statement.ExpandedTransaction
	for i := 0; i < total; i++ {
		date := statement.AddMonths(tx.Date, i)
		if statement.CompareMonth(date, rc.ReportDate) > 0 {
			break
		}
		label := Label(i+1, total)
		out = append(out, fromParsed(tx, date, &label))
	}
	return out
}

func fromParsed(tx statement.ParsedTransaction, date time.Time, details *string) statement.ExpandedTransaction {
	return statement.ExpandedTransaction{
		Date:           date,
		Name:           tx.Name,
		Amount:         tx.Amount,
		Category:       tx.Category,
		Type:           tx.Type,
		PaymentDetails: details,
	}
}
