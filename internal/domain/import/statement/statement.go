// Package statement holds the types shared by the credit-card statement import
// pipeline: the report context derived from a statement, the transactions
// parsed out of it, and the ledger entries produced by installment expansion.
package statement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ISODateLayout is the date layout used for every date leaving the pipeline.
const ISODateLayout = "2006-01-02"

// TransactionType identifies the statement section a transaction came from.
type TransactionType string

const (
	TypeDomestic TransactionType = "domestic"
	TypeForeign  TransactionType = "foreign"
)

// ReportContext anchors installment math to the statement's as-of date.
// Build it with NewReportContext so month and year always agree with the date.
type ReportContext struct {
	ReportDate  time.Time
	ReportMonth int
	ReportYear  int
}

// NewReportContext derives month and year from the report date.
func NewReportContext(reportDate time.Time) ReportContext {
	d := Date(reportDate.Year(), reportDate.Month(), reportDate.Day())
	return ReportContext{
		ReportDate:  d,
		ReportMonth: int(d.Month()),
		ReportYear:  d.Year(),
	}
}

// ISODate returns the report date as YYYY-MM-DD.
func (rc ReportContext) ISODate() string {
	return rc.ReportDate.Format(ISODateLayout)
}

// ReportName is the human label stored with the report descriptor.
func (rc ReportContext) ReportName() string {
	return fmt.Sprintf("Credit Card Report %d/%d", rc.ReportMonth, rc.ReportYear)
}

// ParsedTransaction is one transaction line-group recognised in the statement
// text, before installment expansion.
type ParsedTransaction struct {
	Date           time.Time
	Name           string
	Amount         decimal.Decimal
	Category       string
	Type           TransactionType
	PaymentDetails *string // raw "K of N" annotation, nil when absent
}

// ExpandedTransaction is a single ledger entry derived from a ParsedTransaction.
// PaymentDetails carries the installment label or the additional-charge marker.
type ExpandedTransaction struct {
	Date           time.Time
	Name           string
	Amount         decimal.Decimal
	Category       string
	Type           TransactionType
	PaymentDetails *string
}

// Date returns a UTC midnight time for the calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CompareMonth orders two dates by (year, month) only.
func CompareMonth(a, b time.Time) int {
	switch {
	case a.Year() != b.Year():
		if a.Year() < b.Year() {
			return -1
		}
		return 1
	case a.Month() != b.Month():
		if a.Month() < b.Month() {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// AddMonths moves t forward by n calendar months, clamping the day to the
// last day of the target month (Jan 31 + 1 month is Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	first := Date(t.Year(), t.Month(), 1).AddDate(0, n, 0)
	return InMonth(first.Year(), first.Month(), t.Day())
}

// InMonth returns the given day within year/month, clamped to the month length.
func InMonth(year int, month time.Month, day int) time.Time {
	last := Date(year, month+1, 0).Day()
	if day > last {
		day = last
	}
	return Date(year, month, day)
}
