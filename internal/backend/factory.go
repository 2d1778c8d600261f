package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"subtrack/internal/amqp"
	"subtrack/internal/sheets"
	gsheet "subtrack/internal/sheets/google"
	sheetsmem "subtrack/internal/sheets/memory"
	"subtrack/internal/store"
	"subtrack/internal/store/memory"
	"subtrack/internal/store/mongo"
	"subtrack/internal/store/postgres"
	"subtrack/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	st, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	// Initialize AMQP client (optional)
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change notifications", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized document store",
		"backend", config.Type,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Store:     st,
		Publisher: amqpClient,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				errs = append(errs, amqpClient.Close())
			}
			errs = append(errs, st.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (store.Store, error) {
	switch config.Type {
	case MemoryBackend:
		return memory.New(), nil
	case SQLiteBackend:
		st, err := sqlite.New(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return st, nil
	case MongoBackend:
		st, err := mongo.New(ctx, config.MongoURL, config.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Mongo store: %w", err)
		}
		return st, nil
	case PostgresBackend:
		st, err := postgres.New(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateBackupWriter implements Factory.CreateBackupWriter
func (f *DefaultFactory) CreateBackupWriter(ctx context.Context, config Config) (sheets.BackupWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("Google Sheets disabled - backups are kept in memory")
		return sheetsmem.New(), nil
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backup writer", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}
