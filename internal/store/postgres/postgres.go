// Package postgres stores documents as JSONB rows using a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"subtrack/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    seq        BIGSERIAL PRIMARY KEY,
    collection TEXT      NOT NULL,
    id         TEXT      NOT NULL UNIQUE,
    doc        JSONB     NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection, seq);
CREATE INDEX IF NOT EXISTS idx_documents_doc ON documents USING GIN (doc jsonb_path_ops);
`

type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and ensures the documents table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("PostgreSQL document store ready")
	return &Store{pool: pool}, nil
}

func (s *Store) Collection(name string) store.Collection {
	return &collection{pool: s.pool, name: name}
}

func (s *Store) ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type collection struct {
	pool *pgxpool.Pool
	name string
}

// where renders filter as containment on doc plus an optional id match.
// Placeholders start at $1.
func (c *collection) where(filter store.Filter) (string, []any, error) {
	if err := store.CheckFields(filter); err != nil {
		return "", nil, err
	}
	args := []any{c.name}
	clauses := []string{"collection = $1"}
	body := map[string]any{}
	for k, v := range filter {
		if k == store.IDField {
			args = append(args, v)
			clauses = append(clauses, "id = $"+strconv.Itoa(len(args)))
			continue
		}
		body[k] = v
	}
	if len(body) > 0 {
		b, err := json.Marshal(body)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		args = append(args, string(b))
		clauses = append(clauses, "doc @> $"+strconv.Itoa(len(args))+"::jsonb")
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (c *collection) Find(ctx context.Context, filter store.Filter, opts store.FindOptions) ([]store.Document, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return nil, err
	}
	q := "SELECT id, doc FROM documents WHERE " + where
	if opts.SortField != "" {
		if !store.ValidField(opts.SortField) {
			return nil, fmt.Errorf("%w: %q", store.ErrInvalidField, opts.SortField)
		}
		args = append(args, opts.SortField)
		dir := "ASC"
		if opts.SortDesc {
			dir = "DESC"
		}
		q += " ORDER BY doc->$" + strconv.Itoa(len(args)) + "::text " + dir + ", seq ASC"
	} else {
		q += " ORDER BY seq ASC"
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := c.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	docs := []store.Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		doc, err := store.DecodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s document %s: %w", c.name, id, err)
		}
		doc[store.IDField] = id
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.name, err)
	}
	return docs, nil
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

func encode(doc store.Document) (string, error) {
	if err := store.CheckFields(doc); err != nil {
		return "", err
	}
	body := doc.Clone()
	delete(body, store.IDField)
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (string, error) {
	ids, err := c.InsertMany(ctx, []store.Document{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (c *collection) InsertMany(ctx context.Context, docs []store.Document) ([]string, error) {
	ids := make([]string, 0, len(docs))
	batch := &pgx.Batch{}
	for _, doc := range docs {
		raw, err := encode(doc)
		if err != nil {
			return nil, err
		}
		id := uuid.NewString()
		batch.Queue("INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3::jsonb)", c.name, id, raw)
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert %s: %w", c.name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return ids, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter store.Filter, set store.Document) (int64, error) {
	if _, ok := set[store.IDField]; ok {
		return 0, fmt.Errorf("%w: id is immutable", store.ErrInvalidField)
	}
	patch, err := encode(set)
	if err != nil {
		return 0, err
	}
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	args = append(args, patch)
	q := "UPDATE documents SET doc = doc || $" + strconv.Itoa(len(args)) + "::jsonb " +
		"WHERE seq = (SELECT seq FROM documents WHERE " + where + " ORDER BY seq LIMIT 1)"
	tag, err := c.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", c.name, err)
	}
	return tag.RowsAffected(), nil
}

func (c *collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	tag, err := c.pool.Exec(ctx,
		"DELETE FROM documents WHERE seq = (SELECT seq FROM documents WHERE "+where+" ORDER BY seq LIMIT 1)",
		args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.name, err)
	}
	return tag.RowsAffected(), nil
}

func (c *collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	tag, err := c.pool.Exec(ctx, "DELETE FROM documents WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.name, err)
	}
	return tag.RowsAffected(), nil
}

