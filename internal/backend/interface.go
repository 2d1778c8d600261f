package backend

import (
	"context"

	"subtrack/internal/amqp"
	"subtrack/internal/sheets"
	"subtrack/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened store, the optional change publisher and
// a cleanup function releasing both.
type BackendResult struct {
	Store     store.Store
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the document store selected by config.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateBackupWriter returns the Google Sheets writer when a spreadsheet
	// is configured, else an in-memory writer.
	CreateBackupWriter(ctx context.Context, config Config) (sheets.BackupWriter, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Mongo specific
	MongoURL      string
	MongoDatabase string

	// Postgres specific
	PostgresDSN string

	// Change notifications, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Backup target
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	MongoBackend    BackendType = "mongo"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
