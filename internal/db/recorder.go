package db

import (
	"log/slog"
	"time"

	"github.com/zsprackett/cursor-usage/internal/usage"
)

// Recorder stores every published snapshot and drops rows past the
// retention window.
type Recorder struct {
	store     *DB
	retention time.Duration
	logger    *slog.Logger
}

func NewRecorder(store *DB, retention time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, retention: retention, logger: logger}
}

// Record is a poller observer. Pending snapshots are skipped; storage
// errors are logged.
func (r *Recorder) Record(s usage.Snapshot) {
	if s.Pending() {
		return
	}
	if err := r.store.InsertUsageSnapshot(s); err != nil {
		r.logger.Warn("db: snapshot insert failed", "err", err)
		return
	}
	if r.retention <= 0 {
		return
	}
	n, err := r.store.PruneUsageSnapshots(s.UpdatedAt.Add(-r.retention))
	if err != nil {
		r.logger.Warn("db: snapshot prune failed", "err", err)
	} else if n > 0 {
		r.logger.Debug("db: pruned snapshots", "rows", n)
	}
}
