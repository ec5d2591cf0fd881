package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/odontogram-api/internal/repository"
	"github.com/jwalitptl/odontogram-api/pkg/logger"
)

// AuditCleanupWorker deletes audit rows older than the retention period.
type AuditCleanupWorker struct {
	repo      repository.AuditRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

func NewAuditCleanupWorker(repo repository.AuditRepository, retention, interval time.Duration, log *logger.Logger) *AuditCleanupWorker {
	return &AuditCleanupWorker{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    log,
		now:       time.Now,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Error cleaning up audit logs")
			}
		}
	}
}

// Cleanup runs one pass and returns the number of deleted rows.
func (w *AuditCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)

	rows, err := w.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	w.logger.Info("Cleaned up audit logs", "count", rows, "cutoff", cutoff)
	return rows, nil
}
