// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/expense-tracker/pkg/storage"
)

// RetentionSpec runs the statement retention sweep daily at 3:00 AM.
const RetentionSpec = "0 3 * * *"

// ArchiveRepository is the slice of the import repository the sweep needs.
type ArchiveRepository interface {
	ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]repository.ArchivedStatement, error)
	ClearStatementFile(ctx context.Context, reportID uuid.UUID) error
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	repo      ArchiveRepository
	files     storage.Storage
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// SweepResult summarises one retention run.
type SweepResult struct {
	Deleted int
	Failed  int
}

// NewScheduler creates a new job scheduler. retentionDays <= 0 disables the sweep.
func NewScheduler(repo ArchiveRepository, files storage.Storage, retentionDays int, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		repo:      repo,
		files:     files,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if s.retention > 0 {
		_, err := s.cron.AddFunc(RetentionSpec, s.runSweep)
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the retention sweep (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.runSweep()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("statement retention sweep failed", slog.Any("error", err))
	}
}

// Sweep deletes archived statement files older than the retention window and
// detaches them from their reports. Per-file failures are logged and counted.
func (s *Scheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	if s.retention <= 0 {
		return result, nil
	}

	cutoff := s.now().Add(-s.retention)
	s.logger.Info("starting statement retention sweep", slog.Time("cutoff", cutoff))

	archived, err := s.repo.ListArchivedBefore(ctx, cutoff)
	if err != nil {
		return result, err
	}

	for _, a := range archived {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := s.files.Delete(ctx, a.OwnerID, a.StatementFileID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to delete archived statement",
				slog.String("report_id", a.ReportID.String()),
				slog.String("file_id", a.StatementFileID.String()),
				slog.Any("error", err),
			)
			result.Failed++
			continue
		}

		if err := s.repo.ClearStatementFile(ctx, a.ReportID); err != nil {
			s.logger.Warn("failed to detach statement from report",
				slog.String("report_id", a.ReportID.String()),
				slog.Any("error", err),
			)
			result.Failed++
			continue
		}
		result.Deleted++
	}

	s.logger.Info("statement retention sweep completed",
		slog.Int("deleted", result.Deleted),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}
