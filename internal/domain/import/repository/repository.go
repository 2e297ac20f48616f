// Package repository persists imported statements: one report descriptor per
// statement and the expense rows derived from it.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
	"github.com/FACorreiaa/expense-tracker/pkg/money"
)

// ReportStatus tracks how far an import got
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusImported ReportStatus = "imported"
	ReportStatusPartial  ReportStatus = "partial"
	ReportStatusFailed   ReportStatus = "failed"
)

// PaymentMethodCredit is the payment method of every statement expense.
const PaymentMethodCredit = "credit"

// Report is the descriptor stored for each imported statement
type Report struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Name            string
	ReportDate      time.Time
	StatementFileID *uuid.UUID
	Status          ReportStatus
	ErrorMessage    *string
	ExpenseCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Expense is one ledger row. Date is the statement's report date;
// TransactionDate is the month the entry stands for.
type Expense struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	ReportID        uuid.UUID
	Name            string
	AmountMinor     int64
	CurrencyCode    string
	Date            time.Time
	TransactionDate time.Time
	Category        string
	PaymentMethod   string
	IsRecurring     bool
	Notes           *string
}

// ArchivedStatement is a report whose original file is still in storage
type ArchivedStatement struct {
	ReportID        uuid.UUID
	OwnerID         uuid.UUID
	StatementFileID uuid.UUID
	CreatedAt       time.Time
}

// NewExpense maps an expanded transaction to an expense row.
func NewExpense(ownerID, reportID uuid.UUID, rc statement.ReportContext, tx statement.ExpandedTransaction) Expense {
	return Expense{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		ReportID:        reportID,
		Name:            tx.Name,
		AmountMinor:     money.NewFromDecimal(tx.Amount, money.ILS).Amount(),
		CurrencyCode:    money.ILS,
		Date:            rc.ReportDate,
		TransactionDate: tx.Date,
		Category:        tx.Category,
		PaymentMethod:   PaymentMethodCredit,
		IsRecurring:     false,
		Notes:           tx.PaymentDetails,
	}
}

// ImportRepository defines the interface for statement import persistence
type ImportRepository interface {
	// CreateReport inserts the descriptor. Nothing else is written.
	CreateReport(ctx context.Context, report *Report) error
	// InsertExpenses writes all rows for a report in one transaction and marks
	// the report imported. Either every row lands or none does.
	InsertExpenses(ctx context.Context, reportID uuid.UUID, expenses []Expense) (int, error)
	ListReports(ctx context.Context, ownerID uuid.UUID, limit int) ([]*Report, error)
	MarkReportStatus(ctx context.Context, reportID uuid.UUID, status ReportStatus, errMsg *string) error

	// Retention
	ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]ArchivedStatement, error)
	ClearStatementFile(ctx context.Context, reportID uuid.UUID) error
}
