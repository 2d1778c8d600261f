package services

import (
	"context"
	"errors"
	"log/slog"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

// recordRepo holds the store plumbing shared by subscriptions and expenses.
type recordRepo[T any] struct {
	st         store.Store
	resource   string
	collection string
	encode     func(T) store.Document
	decode     func(store.Document) (T, error)
}

func (r recordRepo[T]) coll() store.Collection {
	return r.st.Collection(r.collection)
}

// list returns every record sorted by name. Records that decode with errors
// are still returned and logged.
func (r recordRepo[T]) list(ctx context.Context) ([]T, error) {
	docs, err := r.coll().Find(ctx, nil, store.FindOptions{SortField: "name"})
	if err != nil {
		return nil, storeError("failed to list "+r.collection, err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := r.decode(d)
		if err != nil {
			slog.WarnContext(ctx, "Stored record has invalid fields",
				"collection", r.collection,
				"record_id", d.ID(),
				"error", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r recordRepo[T]) get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := validateID(r.st, id); err != nil {
		return zero, err
	}
	d, err := r.coll().FindOne(ctx, store.Filter{store.IDField: id})
	if errors.Is(err, store.ErrNoDocument) {
		return zero, core.NewNotFoundError(r.resource, id)
	}
	if err != nil {
		return zero, storeError("failed to load "+r.resource, err)
	}
	v, _ := r.decode(d)
	return v, nil
}

func (r recordRepo[T]) insert(ctx context.Context, v T) (string, error) {
	id, err := r.coll().InsertOne(ctx, r.encode(v))
	if err != nil {
		return "", storeError("failed to create "+r.resource, err)
	}
	return id, nil
}

// update applies set to the record and reads it back.
func (r recordRepo[T]) update(ctx context.Context, id string, set store.Document) (T, error) {
	var zero T
	n, err := r.coll().UpdateOne(ctx, store.Filter{store.IDField: id}, set)
	if err != nil {
		return zero, storeError("failed to update "+r.resource, err)
	}
	if n == 0 {
		return zero, core.NewNotFoundError(r.resource, id)
	}
	return r.get(ctx, id)
}

func (r recordRepo[T]) delete(ctx context.Context, id string) error {
	if err := validateID(r.st, id); err != nil {
		return err
	}
	n, err := r.coll().DeleteOne(ctx, store.Filter{store.IDField: id})
	if err != nil {
		return storeError("failed to delete "+r.resource, err)
	}
	if n == 0 {
		return core.NewNotFoundError(r.resource, id)
	}
	return nil
}

// replace inserts vs, first clearing the collection unless keep is set.
// The two steps are not atomic.
func (r recordRepo[T]) replace(ctx context.Context, vs []T, keep bool) (int, error) {
	if !keep {
		if _, err := r.coll().DeleteMany(ctx, nil); err != nil {
			return 0, storeError("failed to clear "+r.collection, err)
		}
	}
	if len(vs) == 0 {
		return 0, nil
	}
	docs := make([]store.Document, len(vs))
	for i, v := range vs {
		docs[i] = r.encode(v)
	}
	ids, err := r.coll().InsertMany(ctx, docs)
	if err != nil {
		return 0, storeError("failed to insert "+r.collection, err)
	}
	return len(ids), nil
}

func (r recordRepo[T]) clear(ctx context.Context) (int64, error) {
	n, err := r.coll().DeleteMany(ctx, nil)
	if err != nil {
		return 0, storeError("failed to clear "+r.collection, err)
	}
	return n, nil
}
