// Package services implements the tracker's use cases on top of the document
// store: record CRUD, settings, renewal notifications, analytics and bulk data
// operations.
package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

// Collection names.
const (
	CollectionSubscriptions = "subscriptions"
	CollectionExpenses      = "expenses"
	CollectionSettings      = "settings"
)

// Operations announced on data-changed messages.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpImport = "import"
	OpReset  = "reset"
	OpSeed   = "seed"
)

// Publisher announces mutations. Implemented by the AMQP client.
type Publisher interface {
	PublishDataChanged(ctx context.Context, collection, operation, recordID string) error
}

// timeNow is the clock for created_at/updated_at. Millisecond precision keeps
// timestamps identical across backends.
var timeNow = func() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// notify publishes a data-changed message. Failures are logged and never
// surface to the caller.
func notify(ctx context.Context, pub Publisher, collection, operation, id string) {
	if pub == nil {
		return
	}
	if err := pub.PublishDataChanged(ctx, collection, operation, id); err != nil {
		slog.WarnContext(ctx, "Failed to publish data changed message",
			"collection", collection,
			"operation", operation,
			"record_id", id,
			"error", err)
	}
}

// storeError classifies a store failure for the HTTP boundary.
func storeError(message string, err error) error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	return core.NewDatabaseError(message, err)
}

// validateID rejects ids the store could not address, before any store call.
func validateID(st store.Store, id string) error {
	if err := st.ValidateID(id); err != nil {
		return core.NewValidationError("invalid id format", map[string]any{"id": id})
	}
	return nil
}

// CleanText trims s and strips control characters other than newline and tab.
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
