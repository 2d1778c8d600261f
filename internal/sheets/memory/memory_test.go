package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	ports "subtrack/internal/sheets"
)

func TestWriterKeepsLastSnapshot(t *testing.T) {
	w := New()
	if _, ok := w.Last(); ok {
		t.Fatalf("expected no snapshot yet")
	}

	rows := [][]string{{"id", "name"}, {"1", "Netflix"}}
	ref, err := w.WriteBackup(context.Background(), ports.Snapshot{Subscriptions: rows, TakenAt: time.Now()})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}
	rows[1][1] = "changed"

	last, ok := w.Last()
	if !ok || last.Subscriptions[1][1] != "Netflix" {
		t.Fatalf("expected stored copy, got %v", last.Subscriptions)
	}
	if w.Count() != 1 {
		t.Fatalf("expected count 1, got %d", w.Count())
	}
}

func TestWriterFailure(t *testing.T) {
	w := New()
	boom := errors.New("quota exceeded")
	w.FailWith(boom)
	if _, err := w.WriteBackup(context.Background(), ports.Snapshot{}); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	w.FailWith(nil)
	if _, err := w.WriteBackup(context.Background(), ports.Snapshot{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
