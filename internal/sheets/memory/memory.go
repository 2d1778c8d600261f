package memory

import (
	"context"
	"fmt"
	"sync"

	ports "subtrack/internal/sheets"
)

// Writer keeps backups in memory. Used when no spreadsheet is configured and
// in tests.
type Writer struct {
	mu    sync.Mutex
	last  *ports.Snapshot
	count int
	err   error
}

var _ ports.BackupWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// FailWith makes subsequent writes return err; nil clears it.
func (w *Writer) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

func (w *Writer) WriteBackup(_ context.Context, snap ports.Snapshot) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return "", w.err
	}
	cp := ports.Snapshot{
		Subscriptions: copyRows(snap.Subscriptions),
		Expenses:      copyRows(snap.Expenses),
		TakenAt:       snap.TakenAt,
	}
	w.last = &cp
	w.count++
	return fmt.Sprintf("mem:%d", w.count), nil
}

// Last returns the most recent snapshot.
func (w *Writer) Last() (ports.Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return ports.Snapshot{}, false
	}
	return *w.last, true
}

func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
