package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"subtrack/internal/store"
)

// newTestCollection connects to POSTGRES_DSN and hands out a collection with a
// unique name so runs do not see each other's data.
func newTestCollection(t *testing.T) (*Store, store.Collection) {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set, skipping PostgreSQL integration test")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	name := "test_" + uuid.NewString()
	c := s.Collection(name)
	t.Cleanup(func() {
		c.DeleteMany(context.Background(), nil)
		s.Close()
	})
	return s, c
}

func TestPostgresCRUD(t *testing.T) {
	ctx := context.Background()
	s, c := newTestCollection(t)

	id, err := c.InsertOne(ctx, store.Document{"name": "Netflix", "amount_cents": int64(1299)})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.ValidateID(id); err != nil {
		t.Fatalf("assigned id invalid: %v", err)
	}

	n, err := c.UpdateOne(ctx, store.Filter{"id": id}, store.Document{"amount_cents": int64(1499)})
	if err != nil || n != 1 {
		t.Fatalf("update: n=%d err=%v", n, err)
	}
	doc, err := c.FindOne(ctx, store.Filter{"name": "Netflix"})
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if cents, _ := doc.Int64("amount_cents"); cents != 1499 {
		t.Fatalf("unexpected amount %v", doc["amount_cents"])
	}

	n, _ = c.DeleteOne(ctx, store.Filter{"id": id})
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}
	if _, err := c.FindOne(ctx, store.Filter{"id": id}); !errors.Is(err, store.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestPostgresSort(t *testing.T) {
	ctx := context.Background()
	_, c := newTestCollection(t)
	if _, err := c.InsertMany(ctx, []store.Document{{"name": "b"}, {"name": "c"}, {"name": "a"}}); err != nil {
		t.Fatalf("insert many: %v", err)
	}
	docs, err := c.Find(ctx, nil, store.FindOptions{SortField: "name", SortDesc: true, Limit: 2})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 2 || docs[0].String("name") != "c" || docs[1].String("name") != "b" {
		t.Fatalf("unexpected order %+v", docs)
	}
}

func TestValidateID(t *testing.T) {
	s := &Store{}
	if err := s.ValidateID("not-a-uuid"); !errors.Is(err, store.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if err := s.ValidateID(uuid.NewString()); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
