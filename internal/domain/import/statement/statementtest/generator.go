// Package statementtest generates statement transactions and text lines for
// tests using gofakeit.
package statementtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/expense-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

// Generator produces realistic statement data.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator with a random seed.
func NewGenerator() *Generator {
	return &Generator{faker: gofakeit.New(0)}
}

// NewGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Merchant returns a Latin-script business name.
func (g *Generator) Merchant() string {
	return strings.Join(strings.Fields(g.faker.Company()), " ")
}

// Amount returns a positive amount between 1.00 and 5,000.00.
func (g *Generator) Amount() decimal.Decimal {
	return decimal.New(int64(g.faker.Number(100, 500000)), -2)
}

// Category picks a label from the taxonomy.
func (g *Generator) Category(t *categorization.Taxonomy) string {
	labels := t.Labels()
	return labels[g.faker.Number(0, len(labels)-1)]
}

// DateBefore returns a date within the year up to and including ref.
func (g *Generator) DateBefore(ref time.Time) time.Time {
	d := g.faker.DateRange(ref.AddDate(-1, 0, 0), ref)
	return statement.Date(d.Year(), d.Month(), d.Day())
}

// Report returns a report context in 2024 or 2025.
func (g *Generator) Report() statement.ReportContext {
	d := g.faker.DateRange(statement.Date(2024, 1, 1), statement.Date(2025, 12, 31))
	return statement.NewReportContext(d)
}

// Transaction returns a single-payment domestic transaction dated within the
// year before the report.
func (g *Generator) Transaction(rc statement.ReportContext) statement.ParsedTransaction {
	return statement.ParsedTransaction{
		Date:     g.DateBefore(rc.ReportDate),
		Name:     g.Merchant(),
		Amount:   g.Amount(),
		Category: g.Category(categorization.DefaultTaxonomy),
		Type:     statement.TypeDomestic,
	}
}

// InstallmentTransaction returns a domestic purchase paid in 2 to 36 installments.
func (g *Generator) InstallmentTransaction(rc statement.ReportContext) statement.ParsedTransaction {
	tx := g.Transaction(rc)
	total := g.faker.Number(2, 36)
	details := InstallmentDetails(g.faker.Number(1, total), total)
	tx.PaymentDetails = &details
	return tx
}

// InstallmentDetails renders a "K of N" annotation as statements print it.
func InstallmentDetails(current, total int) string {
	return fmt.Sprintf("%d מתוך %d תשלום", current, total)
}

// DomesticLine renders tx as a domestic statement line.
func DomesticLine(tx statement.ParsedTransaction) string {
	parts := []string{
		tx.Date.Format("02/01/06"),
		tx.Name,
		tx.Amount.StringFixed(2),
	}
	if tx.PaymentDetails != nil {
		parts = append(parts, *tx.PaymentDetails)
	}
	parts = append(parts, tx.Category)
	return strings.Join(parts, " ")
}

// StatementText renders a minimal extracted statement: the report date header,
// a domestic section holding txs and the section end marker.
func StatementText(rc statement.ReportContext, txs ...statement.ParsedTransaction) string {
	lines := []string{
		"פירוט חיובים  לתאריך: " + rc.ReportDate.Format("02/01/06"),
		"עסקאות בארץ",
	}
	for _, tx := range txs {
		lines = append(lines, DomesticLine(tx))
	}
	lines = append(lines, `סה"כ חיוב לתאריך`)
	return strings.Join(lines, "\n")
}
