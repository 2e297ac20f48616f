package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

func TestNewExpense(t *testing.T) {
	owner, report := uuid.New(), uuid.New()
	rc := statement.NewReportContext(statement.Date(2025, 4, 2))
	details := "installment 2 of 4"

	e := NewExpense(owner, report, rc, statement.ExpandedTransaction{
		Date:           statement.Date(2025, 2, 15),
		Name:           "מחסני חשמל",
		Amount:         decimal.RequireFromString("300.00"),
		Category:       "קניות",
		Type:           statement.TypeDomestic,
		PaymentDetails: &details,
	})

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, owner, e.OwnerID)
	assert.Equal(t, report, e.ReportID)
	assert.Equal(t, int64(30000), e.AmountMinor)
	assert.Equal(t, "ILS", e.CurrencyCode)
	assert.Equal(t, rc.ReportDate, e.Date)
	assert.Equal(t, statement.Date(2025, 2, 15), e.TransactionDate)
	assert.Equal(t, "credit", e.PaymentMethod)
	assert.False(t, e.IsRecurring)
	require.NotNil(t, e.Notes)
	assert.Equal(t, details, *e.Notes)
}

func TestPostgresImportRepository_CreateReport(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	report := &Report{
		OwnerID:    uuid.New(),
		Name:       "Credit Card Report 4/2025",
		ReportDate: statement.Date(2025, 4, 2),
	}

	mock.ExpectQuery(`INSERT INTO statement_reports`).
		WithArgs(pgxmock.AnyArg(), report.OwnerID, report.Name, report.ReportDate, pgxmock.AnyArg(), ReportStatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	repo := NewPostgresImportRepository(mock)
	require.NoError(t, repo.CreateReport(context.Background(), report))

	assert.NotEqual(t, uuid.Nil, report.ID)
	assert.Equal(t, ReportStatusPending, report.Status)
	assert.Equal(t, now, report.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresImportRepository_CreateReportError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	owner := uuid.New()
	mock.ExpectQuery(`INSERT INTO statement_reports`).
		WithArgs(pgxmock.AnyArg(), owner, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	repo := NewPostgresImportRepository(mock)
	err = repo.CreateReport(context.Background(), &Report{OwnerID: owner})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create report")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sampleExpenses(owner, report uuid.UUID) []Expense {
	rc := statement.NewReportContext(statement.Date(2025, 4, 2))
	return []Expense{
		NewExpense(owner, report, rc, statement.ExpandedTransaction{
			Date: statement.Date(2025, 3, 1), Name: "סופרמרקט טוב",
			Amount: decimal.RequireFromString("145.90"), Category: "מזון",
		}),
		NewExpense(owner, report, rc, statement.ExpandedTransaction{
			Date: statement.Date(2025, 2, 12), Name: "Some Store",
			Amount: decimal.RequireFromString("89.90"), Category: "Foreign",
		}),
	}
}

func TestPostgresImportRepository_InsertExpenses(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	owner, reportID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"expenses"}, expenseColumns).WillReturnResult(2)
	mock.ExpectExec(`UPDATE statement_reports SET status`).
		WithArgs(reportID, ReportStatusImported).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewPostgresImportRepository(mock)
	n, err := repo.InsertExpenses(context.Background(), reportID, sampleExpenses(owner, reportID))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresImportRepository_InsertExpensesRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	owner, reportID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"expenses"}, expenseColumns).
		WillReturnError(errors.New("violates check constraint"))
	mock.ExpectRollback()

	repo := NewPostgresImportRepository(mock)
	n, err := repo.InsertExpenses(context.Background(), reportID, sampleExpenses(owner, reportID))

	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "failed to insert expenses")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresImportRepository_ListReports(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	owner := uuid.New()
	fileID := uuid.New()
	now := time.Now()
	msg := "insert failed"

	mock.ExpectQuery(`SELECT r.id, r.owner_id, r.report_name`).
		WithArgs(owner, 20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "owner_id", "report_name", "report_date", "statement_file_id", "status",
			"error_message", "created_at", "updated_at", "count",
		}).
			AddRow(uuid.New(), owner, "Credit Card Report 4/2025", statement.Date(2025, 4, 2), &fileID, ReportStatusImported, (*string)(nil), now, now, 8).
			AddRow(uuid.New(), owner, "Credit Card Report 3/2025", statement.Date(2025, 3, 2), (*uuid.UUID)(nil), ReportStatusPartial, &msg, now, now, 0))

	repo := NewPostgresImportRepository(mock)
	reports, err := repo.ListReports(context.Background(), owner, 0)

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 8, reports[0].ExpenseCount)
	require.NotNil(t, reports[0].StatementFileID)
	assert.Equal(t, fileID, *reports[0].StatementFileID)
	assert.Equal(t, ReportStatusPartial, reports[1].Status)
	require.NotNil(t, reports[1].ErrorMessage)
	assert.Equal(t, msg, *reports[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresImportRepository_MarkReportStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	msg := "boom"

	mock.ExpectExec(`UPDATE statement_reports SET status`).
		WithArgs(id, ReportStatusPartial, &msg).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE statement_reports SET status`).
		WithArgs(id, ReportStatusFailed, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresImportRepository(mock)
	require.NoError(t, repo.MarkReportStatus(context.Background(), id, ReportStatusPartial, &msg))

	err = repo.MarkReportStatus(context.Background(), id, ReportStatusFailed, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresImportRepository_Retention(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Now().AddDate(0, 0, -90)
	reportID, owner, fileID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT id, owner_id, statement_file_id, created_at`).
		WithArgs(cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "statement_file_id", "created_at"}).
			AddRow(reportID, owner, fileID, cutoff.AddDate(0, 0, -1)))
	mock.ExpectExec(`UPDATE statement_reports SET statement_file_id = NULL`).
		WithArgs(reportID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresImportRepository(mock)
	archived, err := repo.ListArchivedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, fileID, archived[0].StatementFileID)

	require.NoError(t, repo.ClearStatementFile(context.Background(), reportID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
