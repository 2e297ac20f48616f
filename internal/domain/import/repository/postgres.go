package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/expense-tracker/pkg/db"
)

var expenseColumns = []string{
	"id", "owner_id", "report_id", "name", "amount_minor", "currency_code",
	"date", "transaction_date", "category", "payment_method", "is_recurring", "notes",
}

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	pool db.Pool
}

// NewPostgresImportRepository creates a new PostgreSQL import repository
func NewPostgresImportRepository(pool db.Pool) *PostgresImportRepository {
	return &PostgresImportRepository{pool: pool}
}

// CreateReport inserts a new report descriptor
func (r *PostgresImportRepository) CreateReport(ctx context.Context, report *Report) error {
	query := `
		INSERT INTO statement_reports (id, owner_id, report_name, report_date, statement_file_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.Status == "" {
		report.Status = ReportStatusPending
	}

	err := r.pool.QueryRow(ctx, query,
		report.ID,
		report.OwnerID,
		report.Name,
		report.ReportDate,
		report.StatementFileID,
		report.Status,
	).Scan(&report.CreatedAt, &report.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// InsertExpenses bulk-loads expenses with COPY inside a transaction
func (r *PostgresImportRepository) InsertExpenses(ctx context.Context, reportID uuid.UUID, expenses []Expense) (int, error) {
	rows := make([][]any, 0, len(expenses))
	for _, e := range expenses {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		rows = append(rows, []any{
			e.ID, e.OwnerID, reportID, e.Name, e.AmountMinor, e.CurrencyCode,
			e.Date, e.TransactionDate, e.Category, e.PaymentMethod, e.IsRecurring, e.Notes,
		})
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin expense insert: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"expenses"}, expenseColumns, pgx.CopyFromRows(rows))
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("failed to insert expenses: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE statement_reports SET status = $2, error_message = NULL, updated_at = now() WHERE id = $1`,
		reportID, ReportStatusImported)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("failed to mark report imported: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit expenses: %w", err)
	}
	return int(n), nil
}

// ListReports returns an owner's most recent reports with their expense counts
func (r *PostgresImportRepository) ListReports(ctx context.Context, ownerID uuid.UUID, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT r.id, r.owner_id, r.report_name, r.report_date, r.statement_file_id, r.status,
			r.error_message, r.created_at, r.updated_at,
			(SELECT count(*) FROM expenses e WHERE e.report_id = r.id)
		FROM statement_reports r
		WHERE r.owner_id = $1
		ORDER BY r.report_date DESC, r.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		rep := &Report{}
		if err := rows.Scan(
			&rep.ID,
			&rep.OwnerID,
			&rep.Name,
			&rep.ReportDate,
			&rep.StatementFileID,
			&rep.Status,
			&rep.ErrorMessage,
			&rep.CreatedAt,
			&rep.UpdatedAt,
			&rep.ExpenseCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// MarkReportStatus records the outcome of an import
func (r *PostgresImportRepository) MarkReportStatus(ctx context.Context, reportID uuid.UUID, status ReportStatus, errMsg *string) error {
	query := `UPDATE statement_reports SET status = $2, error_message = $3, updated_at = now() WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, reportID, status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListArchivedBefore finds reports whose stored statement predates cutoff
func (r *PostgresImportRepository) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]ArchivedStatement, error) {
	query := `
		SELECT id, owner_id, statement_file_id, created_at
		FROM statement_reports
		WHERE statement_file_id IS NOT NULL AND created_at < $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived statements: %w", err)
	}
	defer rows.Close()

	var out []ArchivedStatement
	for rows.Next() {
		var a ArchivedStatement
		if err := rows.Scan(&a.ReportID, &a.OwnerID, &a.StatementFileID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived statement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClearStatementFile forgets the stored file of a report
func (r *PostgresImportRepository) ClearStatementFile(ctx context.Context, reportID uuid.UUID) error {
	query := `UPDATE statement_reports SET statement_file_id = NULL, updated_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, reportID); err != nil {
		return fmt.Errorf("failed to clear statement file: %w", err)
	}
	return nil
}

var _ ImportRepository = (*PostgresImportRepository)(nil)
