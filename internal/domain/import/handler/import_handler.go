package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/expense-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/export"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/expense-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/sniffer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/summary"
	"github.com/FACorreiaa/expense-tracker/pkg/interceptors"
	"github.com/FACorreiaa/expense-tracker/pkg/money"
)

// DefaultMaxUploadBytes caps a statement upload when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// Importer runs the statement pipeline.
type Importer interface {
	ImportStatement(ctx context.Context, ownerID uuid.UUID, fileName string, data []byte) (*importservice.ImportResult, error)
	Preview(ctx context.Context, ownerID uuid.UUID, data []byte) (*importservice.ImportResult, error)
}

// ReportLister lists an owner's imported reports.
type ReportLister interface {
	ListReports(ctx context.Context, ownerID uuid.UUID, limit int) ([]*repository.Report, error)
}

// OverrideManager persists user category corrections.
type OverrideManager interface {
	SaveOverride(ctx context.Context, o normalizer.CategoryOverride) (*normalizer.CategoryOverride, error)
	GetOverridesForUser(ctx context.Context, userID uuid.UUID) (normalizer.Overrides, error)
	DeleteOverride(ctx context.Context, userID, overrideID uuid.UUID) error
}

// ImportHandler serves the statement import API
type ImportHandler struct {
	importSvc Importer
	reports   ReportLister
	overrides OverrideManager // Optional: override routes are not registered when nil
	taxonomy  *categorization.Taxonomy
	maxUpload int64
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc Importer, reports ReportLister, taxonomy *categorization.Taxonomy, logger *slog.Logger) *ImportHandler {
	if taxonomy == nil {
		taxonomy = categorization.DefaultTaxonomy
	}
	return &ImportHandler{
		importSvc: importSvc,
		reports:   reports,
		taxonomy:  taxonomy,
		maxUpload: DefaultMaxUploadBytes,
		logger:    logger,
	}
}

// WithOverrides enables the category override routes
func (h *ImportHandler) WithOverrides(m OverrideManager) *ImportHandler {
	h.overrides = m
	return h
}

// WithMaxUploadBytes caps the multipart body size
func (h *ImportHandler) WithMaxUploadBytes(n int64) *ImportHandler {
	if n > 0 {
		h.maxUpload = n
	}
	return h
}

// Register mounts the routes on mux
func (h *ImportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("POST /v1/imports/credit-card", h.ImportCreditCard)
	mux.HandleFunc("GET /v1/imports", h.ListImports)
	mux.HandleFunc("GET /v1/categories", h.ListCategories)
	if h.overrides != nil {
		mux.HandleFunc("GET /v1/category-overrides", h.ListOverrides)
		mux.HandleFunc("POST /v1/category-overrides", h.SaveOverride)
		mux.HandleFunc("DELETE /v1/category-overrides/{id}", h.DeleteOverride)
	}
}

type transactionJSON struct {
	Date           string  `json:"date"`
	Name           string  `json:"name"`
	Amount         string  `json:"amount"`
	Category       string  `json:"category"`
	Type           string  `json:"type"`
	PaymentDetails *string `json:"payment_details,omitempty"`
}

type importResponse struct {
	ReportID       *uuid.UUID        `json:"report_id,omitempty"`
	ReportName     string            `json:"report_name"`
	ReportDate     string            `json:"report_date"`
	Parsed         int               `json:"parsed"`
	Expanded       int               `json:"expanded"`
	Imported       int               `json:"imported"`
	Foreign        int               `json:"foreign"`
	Domestic       int               `json:"domestic"`
	SkippedLines   int               `json:"skipped_lines"`
	Total          *money.Money      `json:"total"`
	DryRun         bool              `json:"dry_run"`
	NoTransactions bool              `json:"no_transactions"`
	Message        string            `json:"message,omitempty"`
	Summary        *summary.Summary  `json:"summary,omitempty"`
	Transactions   []transactionJSON `json:"transactions,omitempty"`
}

type reportJSON struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ReportDate   string    `json:"report_date"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	ExpenseCount int       `json:"expense_count"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"created_at"`
}

type errorResponse struct {
	Error    string     `json:"error"`
	ReportID *uuid.UUID `json:"report_id,omitempty"`
}

// ImportCreditCard accepts a multipart upload with the PDF in the "file" field.
// dry_run=true parses without saving; adding format=csv or format=xlsx returns
// the ledger entries as a file instead of JSON.
func (h *ImportHandler) ImportCreditCard(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	var format export.Format
	if v := r.URL.Query().Get("format"); v != "" && v != "json" {
		f, err := export.ParseFormat(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "format must be json, csv or xlsx")
			return
		}
		if !dryRun {
			writeError(w, http.StatusBadRequest, "format requires dry_run")
			return
		}
		format = f
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	var result *importservice.ImportResult
	if dryRun {
		result, err = h.importSvc.Preview(r.Context(), ownerID, data)
	} else {
		result, err = h.importSvc.ImportStatement(r.Context(), ownerID, header.Filename, data)
	}
	if err != nil {
		h.writeImportError(w, ownerID, err)
		return
	}

	if format != "" {
		h.writeExport(w, format, result)
		return
	}
	writeJSON(w, http.StatusOK, toImportResponse(result, dryRun))
}

func (h *ImportHandler) writeExport(w http.ResponseWriter, format export.Format, result *importservice.ImportResult) {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, result.ReportName, result.Transactions); err != nil {
		h.logger.Error("failed to export preview", slog.String("format", string(format)), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	fileName := fmt.Sprintf("statement-%s.%s", result.ReportDate.Format(statement.ISODateLayout), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ListImports returns the caller's recent reports. ?limit= defaults to 20.
func (h *ImportHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reports, err := h.reports.ListReports(r.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error("failed to list reports", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not list imports")
		return
	}
	out := make([]reportJSON, 0, len(reports))
	for _, rep := range reports {
		out = append(out, reportJSON{
			ID:           rep.ID,
			Name:         rep.Name,
			ReportDate:   rep.ReportDate.Format(statement.ISODateLayout),
			Status:       string(rep.Status),
			ErrorMessage: rep.ErrorMessage,
			ExpenseCount: rep.ExpenseCount,
			Archived:     rep.StatementFileID != nil,
			CreatedAt:    rep.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

// ListCategories returns the taxonomy labels followed by the fallback.
func (h *ImportHandler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": h.taxonomy.All(),
		"fallback":   h.taxonomy.Fallback(),
	})
}

func (h *ImportHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ImportHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	overrides, err := h.overrides.GetOverridesForUser(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("failed to list overrides", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not list overrides")
		return
	}
	if overrides == nil {
		overrides = normalizer.Overrides{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"overrides": overrides})
}

type saveOverrideRequest struct {
	MatchPattern string `json:"match_pattern"`
	MatchType    string `json:"match_type"`
	Category     string `json:"category"`
}

func (h *ImportHandler) SaveOverride(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req saveOverrideRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MatchPattern == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "match_pattern and category are required")
		return
	}
	if !normalizer.ValidMatchType(req.MatchType) {
		writeError(w, http.StatusBadRequest, "match_type must be exact, contains or fuzzy")
		return
	}

	saved, err := h.overrides.SaveOverride(r.Context(), normalizer.CategoryOverride{
		UserID:       ownerID,
		MatchPattern: req.MatchPattern,
		MatchType:    req.MatchType,
		Category:     req.Category,
	})
	if err != nil {
		h.logger.Error("failed to save override", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not save override")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *ImportHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	overrideID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid override id")
		return
	}

	if err := h.overrides.DeleteOverride(r.Context(), ownerID, overrideID); err != nil {
		if normalizer.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "override not found")
			return
		}
		h.logger.Error("failed to delete override", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not delete override")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ImportHandler) writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	writeError(w, http.StatusBadRequest, "a PDF file is required in the \"file\" field")
}

func (h *ImportHandler) writeImportError(w http.ResponseWriter, ownerID uuid.UUID, err error) {
	var partial *statement.PartialImportError
	switch {
	case errors.Is(err, sniffer.ErrNotPDF):
		writeError(w, http.StatusUnsupportedMediaType, "file is not a PDF")
	case errors.Is(err, statement.ErrDocumentRead):
		writeError(w, http.StatusUnprocessableEntity, statement.ErrDocumentRead.Error())
	case errors.Is(err, statement.ErrMissingReportDate):
		writeError(w, http.StatusUnprocessableEntity, statement.ErrMissingReportDate.Error())
	case errors.As(err, &partial):
		writeJSON(w, http.StatusMultiStatus, errorResponse{
			Error:    "partial import: report saved without expenses",
			ReportID: &partial.ReportID,
		})
	default:
		h.logger.Error("statement import failed",
			slog.String("owner_id", ownerID.String()),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "import failed")
	}
}

func toImportResponse(result *importservice.ImportResult, dryRun bool) importResponse {
	resp := importResponse{
		ReportName:     result.ReportName,
		ReportDate:     result.ReportDate.Format(statement.ISODateLayout),
		Parsed:         result.Parsed,
		Expanded:       result.Expanded,
		Imported:       result.Imported,
		Foreign:        result.Foreign,
		Domestic:       result.Domestic,
		SkippedLines:   result.SkippedLines,
		DryRun:         dryRun,
		NoTransactions: result.NoTransactions,
	}
	if result.ReportID != uuid.Nil {
		id := result.ReportID
		resp.ReportID = &id
	}
	if err := result.Err(); err != nil {
		resp.Message = err.Error()
	}

	amounts := make([]decimal.Decimal, 0, len(result.Transactions))
	for _, tx := range result.Transactions {
		amounts = append(amounts, tx.Amount)
		if dryRun {
			resp.Transactions = append(resp.Transactions, transactionJSON{
				Date:           tx.Date.Format(statement.ISODateLayout),
				Name:           tx.Name,
				Amount:         tx.Amount.StringFixed(2),
				Category:       tx.Category,
				Type:           string(tx.Type),
				PaymentDetails: tx.PaymentDetails,
			})
		}
	}
	resp.Total = money.Sum(money.ILS, amounts...)
	if len(result.Transactions) > 0 {
		resp.Summary = summary.Build(statement.NewReportContext(result.ReportDate), result.Transactions, 0)
	}
	return resp
}

func ownerFromRequest(r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := interceptors.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		return uuid.Nil, false
	}
	ownerID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return ownerID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
