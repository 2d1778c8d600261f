// Package memory is an in-process document store. Data lives for the life of
// the process; it backs tests and the default development setup.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"subtrack/internal/store"
)

type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
}

func New() *Store {
	return &Store{collections: map[string]*collection{}}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) store.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &collection{}
		s.collections[name] = c
	}
	return c
}

// ValidateID accepts only UUIDs, which is what InsertOne hands out.
func (s *Store) ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

type collection struct {
	mu   sync.RWMutex
	docs []store.Document
}

func (c *collection) Find(_ context.Context, filter store.Filter, opts store.FindOptions) ([]store.Document, error) {
	match, err := matcher(filter)
	if err != nil {
		return nil, err
	}
	if opts.SortField != "" && !store.ValidField(opts.SortField) {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidField, opts.SortField)
	}

	c.mu.RLock()
	out := make([]store.Document, 0, len(c.docs))
	for _, d := range c.docs {
		if match(d) {
			out = append(out, d.Clone())
		}
	}
	c.mu.RUnlock()

	if opts.SortField != "" {
		field := opts.SortField
		sort.SliceStable(out, func(i, j int) bool {
			order := compare(out[i][field], out[j][field])
			if opts.SortDesc {
				return order > 0
			}
			return order < 0
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	docs, err := c.Find(ctx, filter, store.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, store.ErrNoDocument
	}
	return docs[0], nil
}

func (c *collection) InsertOne(_ context.Context, doc store.Document) (string, error) {
	d, err := prepare(doc)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.docs = append(c.docs, d)
	c.mu.Unlock()
	return d.ID(), nil
}

func (c *collection) InsertMany(_ context.Context, docs []store.Document) ([]string, error) {
	prepared := make([]store.Document, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		d, err := prepare(doc)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, d)
		ids = append(ids, d.ID())
	}
	c.mu.Lock()
	c.docs = append(c.docs, prepared...)
	c.mu.Unlock()
	return ids, nil
}

func (c *collection) UpdateOne(_ context.Context, filter store.Filter, set store.Document) (int64, error) {
	match, err := matcher(filter)
	if err != nil {
		return 0, err
	}
	if _, ok := set[store.IDField]; ok {
		return 0, fmt.Errorf("%w: id is immutable", store.ErrInvalidField)
	}
	if err := store.CheckFields(set); err != nil {
		return 0, err
	}
	patch, err := store.Normalize(set)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if !match(d) {
			continue
		}
		updated := d.Clone()
		for k, v := range patch {
			updated[k] = v
		}
		c.docs[i] = updated
		return 1, nil
	}
	return 0, nil
}

func (c *collection) DeleteOne(_ context.Context, filter store.Filter) (int64, error) {
	match, err := matcher(filter)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if match(d) {
			c.docs = append(c.docs[:i:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *collection) DeleteMany(_ context.Context, filter store.Filter) (int64, error) {
	match, err := matcher(filter)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.docs[:0:0]
	var deleted int64
	for _, d := range c.docs {
		if match(d) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	return deleted, nil
}

// prepare copies doc into its stored shape and assigns a fresh id.
func prepare(doc store.Document) (store.Document, error) {
	if err := store.CheckFields(doc); err != nil {
		return nil, err
	}
	d, err := store.Normalize(doc)
	if err != nil {
		return nil, err
	}
	d[store.IDField] = uuid.NewString()
	return d, nil
}

func matcher(filter store.Filter) (func(store.Document) bool, error) {
	if err := store.CheckFields(filter); err != nil {
		return nil, err
	}
	want, err := store.Normalize(store.Document(filter))
	if err != nil {
		return nil, err
	}
	return func(d store.Document) bool {
		for k, v := range want {
			got, ok := d[k]
			if !ok || !scalarEqual(got, v) {
				return false
			}
		}
		return true
	}, nil
}

// scalarEqual compares normalized JSON scalars; composite values never match.
func scalarEqual(a, b any) bool {
	switch a.(type) {
	case string, json.Number, bool, nil:
	default:
		return false
	}
	switch b.(type) {
	case string, json.Number, bool, nil:
	default:
		return false
	}
	if x, ok := a.(json.Number); ok {
		if y, ok := b.(json.Number); ok {
			return compareNumbers(x, y) == 0
		}
		return false
	}
	return a == b
}

func compareNumbers(x, y json.Number) int {
	if xi, err := x.Int64(); err == nil {
		if yi, err := y.Int64(); err == nil {
			return cmp.Compare(xi, yi)
		}
	}
	xf, _ := x.Float64()
	yf, _ := y.Float64()
	return cmp.Compare(xf, yf)
}

// compare orders JSON scalars: strings byte-wise, numbers numerically.
// Missing values sort first.
func compare(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case json.Number:
		if y, ok := b.(json.Number); ok {
			return compareNumbers(x, y)
		}
	}
	switch {
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	}
	return 0
}
