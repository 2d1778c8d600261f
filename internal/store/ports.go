// Package store defines the document persistence ports used by the services.
//
// Documents are schemaless maps. Every backend assigns an opaque string id on
// insert and exposes it under the "id" key; filters match top-level scalar
// fields by equality, and the "id" key addresses the store id.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// IDField is the document key holding the store-assigned id.
const IDField = "id"

var (
	// ErrNoDocument is returned by FindOne when nothing matches.
	ErrNoDocument = errors.New("no document matches filter")
	// ErrInvalidID is returned by ValidateID for ids the backend cannot address.
	ErrInvalidID = errors.New("invalid document id")
	// ErrInvalidField is returned for filter, sort or update keys that are not
	// plain field names.
	ErrInvalidField = errors.New("invalid field name")
)

type (
	Document map[string]any
	Filter   map[string]any
)

// FindOptions controls ordering and size of Find results. An empty SortField
// keeps insertion order; Limit <= 0 means no limit.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Limit     int
}

// Collection is a named set of documents.
type Collection interface {
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]Document, error)
	FindOne(ctx context.Context, filter Filter) (Document, error)
	InsertOne(ctx context.Context, doc Document) (string, error)
	InsertMany(ctx context.Context, docs []Document) ([]string, error)
	UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
}

// Store hands out collections and owns the backend connection.
type Store interface {
	Collection(name string) Collection
	ValidateID(id string) error
	Ping(ctx context.Context) error
	Close() error
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether name is usable as a filter, sort or update key.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// CheckFields validates every key of a filter or update document.
func CheckFields(m map[string]any) error {
	for k := range m {
		if !ValidField(k) {
			return fmt.Errorf("%w: %q", ErrInvalidField, k)
		}
	}
	return nil
}
