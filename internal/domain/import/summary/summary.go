// Package summary aggregates a statement's ledger entries into spend per
// category and top merchants.
package summary

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/installments"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
	"github.com/FACorreiaa/expense-tracker/pkg/money"
)

// DefaultTopMerchants is how many merchants Build keeps when limit <= 0.
const DefaultTopMerchants = 5

// CategorySpend represents spending in one category
type CategorySpend struct {
	Category    string  `json:"category"`
	AmountMinor int64   `json:"amount_minor"`
	TxCount     int     `json:"tx_count"`
	Share       float64 `json:"share"` // fraction of the billed total, 0..1
}

// MerchantSpend represents spending at a merchant
type MerchantSpend struct {
	MerchantName string `json:"merchant_name"`
	AmountMinor  int64  `json:"amount_minor"`
	TxCount      int    `json:"tx_count"`
}

// Summary describes what the statement bills in its report month. Entries
// dated before or after the report month are totalled separately.
type Summary struct {
	BilledMinor     int64           `json:"billed_minor"`
	EarlierMinor    int64           `json:"earlier_minor"`
	LaterMinor      int64           `json:"later_minor"`
	BilledCount     int             `json:"billed_count"`
	Categories      []CategorySpend `json:"categories"`
	TopMerchants    []MerchantSpend `json:"top_merchants"`
	ForeignMinor    int64           `json:"foreign_minor"`
	InstallmentRuns int             `json:"installment_runs"`
}

// Build summarises txs against the report month. Categories are ordered by
// amount, largest first; ties keep first-seen order.
func Build(rc statement.ReportContext, txs []statement.ExpandedTransaction, limit int) *Summary {
	if limit <= 0 {
		limit = DefaultTopMerchants
	}

	s := &Summary{Categories: []CategorySpend{}, TopMerchants: []MerchantSpend{}}
	byCategory := map[string]int{}
	byMerchant := map[string]int{}
	runs := map[string]struct{}{}

	for _, tx := range txs {
		minor := minorUnits(tx.Amount)
		switch c := statement.CompareMonth(tx.Date, rc.ReportDate); {
		case c < 0:
			s.EarlierMinor += minor
			continue
		case c > 0:
			s.LaterMinor += minor
			continue
		}

		s.BilledMinor += minor
		s.BilledCount++
		if tx.Type == statement.TypeForeign {
			s.ForeignMinor += minor
		}
		if key, ok := runKey(tx); ok {
			runs[key] = struct{}{}
		}

		i, ok := byCategory[tx.Category]
		if !ok {
			i = len(s.Categories)
			byCategory[tx.Category] = i
			s.Categories = append(s.Categories, CategorySpend{Category: tx.Category})
		}
		s.Categories[i].AmountMinor += minor
		s.Categories[i].TxCount++

		j, ok := byMerchant[tx.Name]
		if !ok {
			j = len(s.TopMerchants)
			byMerchant[tx.Name] = j
			s.TopMerchants = append(s.TopMerchants, MerchantSpend{MerchantName: tx.Name})
		}
		s.TopMerchants[j].AmountMinor += minor
		s.TopMerchants[j].TxCount++
	}
	s.InstallmentRuns = len(runs)

	sort.SliceStable(s.Categories, func(a, b int) bool {
		return s.Categories[a].AmountMinor > s.Categories[b].AmountMinor
	})
	if s.BilledMinor != 0 {
		for i := range s.Categories {
			s.Categories[i].Share = float64(s.Categories[i].AmountMinor) / float64(s.BilledMinor)
		}
	}

	sort.SliceStable(s.TopMerchants, func(a, b int) bool {
		return s.TopMerchants[a].AmountMinor > s.TopMerchants[b].AmountMinor
	})
	if len(s.TopMerchants) > limit {
		s.TopMerchants = s.TopMerchants[:limit]
	}
	return s
}

// runKey identifies the purchase an installment entry belongs to: merchant,
// amount, month of the first charge and number of payments.
func runKey(tx statement.ExpandedTransaction) (string, bool) {
	if tx.PaymentDetails == nil {
		return "", false
	}
	i, n, ok := installments.ParseLabel(*tx.PaymentDetails)
	if !ok {
		return "", false
	}
	first := statement.AddMonths(tx.Date, -(i - 1))
	return fmt.Sprintf("%s|%s|%04d-%02d|%d", tx.Name, tx.Amount.String(), first.Year(), first.Month(), n), true
}

func minorUnits(d decimal.Decimal) int64 {
	return money.NewFromDecimal(d, money.ILS).Amount()
}
