package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/services"
	"subtrack/internal/sheets"
)

// BackupWorker copies the dataset to a backup writer whenever it changed and
// the configured backup interval has elapsed.
type BackupWorker struct {
	data     *services.DataService
	settings *services.SettingsService
	writer   sheets.BackupWriter
	now      func() time.Time
	dirty    atomic.Bool

	untracked bool
}

// NewBackupWorker starts dirty so that changes made while the worker was down
// are picked up by the first check.
func NewBackupWorker(data *services.DataService, settings *services.SettingsService, writer sheets.BackupWriter) *BackupWorker {
	w := &BackupWorker{
		data:     data,
		settings: settings,
		writer:   writer,
		now:      time.Now,
	}
	w.dirty.Store(true)
	return w
}

// HandleDataChanged processes a single data changed message from AMQP.
func (w *BackupWorker) HandleDataChanged(ctx context.Context, msg *amqp.DataChangedMessage) error {
	slog.DebugContext(ctx, "Processing data changed message",
		"collection", msg.Collection,
		"operation", msg.Operation,
		"record_id", msg.RecordID)
	w.dirty.Store(true)
	return nil
}

func (w *BackupWorker) Dirty() bool {
	return w.dirty.Load()
}

// DisableChangeTracking makes every check treat the dataset as changed. Used
// when no change feed is available. Call before Run.
func (w *BackupWorker) DisableChangeTracking() {
	w.untracked = true
}

// CheckAndBackup runs a backup when the dataset is dirty and one is due.
func (w *BackupWorker) CheckAndBackup(ctx context.Context) (bool, error) {
	if !w.untracked && !w.dirty.Load() {
		return false, nil
	}
	settings, err := w.settings.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}
	if !settings.BackupDue(w.now()) {
		return false, nil
	}
	if _, err := w.RunBackup(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RunBackup writes a snapshot unconditionally and records last_backup.
func (w *BackupWorker) RunBackup(ctx context.Context) (string, error) {
	// Changes arriving while the snapshot is taken mark the set dirty again.
	w.dirty.Store(false)

	subs, exps, _, err := w.data.Snapshot(ctx)
	if err != nil {
		w.dirty.Store(true)
		return "", fmt.Errorf("load snapshot: %w", err)
	}
	takenAt := w.now().UTC()
	ref, err := w.writer.WriteBackup(ctx, sheets.Snapshot{
		Subscriptions: services.SubscriptionRows(subs),
		Expenses:      services.ExpenseRows(exps),
		TakenAt:       takenAt,
	})
	if err != nil {
		w.dirty.Store(true)
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := w.settings.MarkBackup(ctx, takenAt); err != nil {
		return ref, fmt.Errorf("record last backup: %w", err)
	}

	slog.InfoContext(ctx, "Backup written",
		"ref", ref,
		"subscriptions", len(subs),
		"expenses", len(exps))
	return ref, nil
}

// Run checks for due backups every interval until ctx is cancelled.
func (w *BackupWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *BackupWorker) check(ctx context.Context) {
	if _, err := w.CheckAndBackup(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic backup failed", "error", err)
	}
}
