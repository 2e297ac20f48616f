package statement

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrDocumentRead matches any DocumentReadError.
	ErrDocumentRead = errors.New("could not read file")
	// ErrMissingReportDate matches any MissingReportDateError.
	ErrMissingReportDate = errors.New("could not find report date")
	// ErrNoTransactionsFound is soft: both sections were empty.
	ErrNoTransactionsFound = errors.New("no transactions found in statement")
	// ErrPartialImport matches any PartialImportError.
	ErrPartialImport = errors.New("partial import")
)

// DocumentReadError reports a PDF that could not be opened or rendered.
type DocumentReadError struct {
	Err error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("%s: %v", ErrDocumentRead, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

func (e *DocumentReadError) Is(target error) bool { return target == ErrDocumentRead }

// MissingReportDateError reports statement text without a usable as-of date.
type MissingReportDateError struct {
	Reason string
}

func (e *MissingReportDateError) Error() string {
	if e.Reason == "" {
		return ErrMissingReportDate.Error()
	}
	return fmt.Sprintf("%s: %s", ErrMissingReportDate, e.Reason)
}

func (e *MissingReportDateError) Is(target error) bool { return target == ErrMissingReportDate }

// PartialImportError means the report descriptor was written but its expense
// rows were not.
type PartialImportError struct {
	ReportID uuid.UUID
	Err      error
}

func (e *PartialImportError) Error() string {
	return fmt.Sprintf("%s: report %s saved without expenses: %v", ErrPartialImport, e.ReportID, e.Err)
}

func (e *PartialImportError) Unwrap() error { return e.Err }

func (e *PartialImportError) Is(target error) bool { return target == ErrPartialImport }
