package sheets

import (
	"context"
	"time"
)

// Snapshot is a full copy of the dataset laid out as tables, header row first.
type Snapshot struct {
	Subscriptions [][]string
	Expenses      [][]string
	TakenAt       time.Time
}

// Ports for outbound adapters.
type (
	// BackupWriter stores a snapshot, replacing the previous one.
	BackupWriter interface {
		WriteBackup(ctx context.Context, snap Snapshot) (ref string, err error)
	}
)
