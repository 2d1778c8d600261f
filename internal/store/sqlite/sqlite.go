// Package sqlite stores documents as JSON rows in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"subtrack/internal/store"
)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite document store ready", "db_path", dbPath)
	return &Store{db: db}, nil
}

func (s *Store) Collection(name string) store.Collection {
	return &collection{db: s.db, name: name}
}

func (s *Store) ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type collection struct {
	db   *sql.DB
	name string
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// where builds the WHERE clause for filter. Field names are validated before
// being spliced into JSON paths.
func (c *collection) where(filter store.Filter) (string, []any, error) {
	if err := store.CheckFields(filter); err != nil {
		return "", nil, err
	}
	clauses := []string{"collection = ?"}
	args := []any{c.name}
	for k, v := range filter {
		if k == store.IDField {
			clauses = append(clauses, "id = ?")
			args = append(args, v)
			continue
		}
		clauses = append(clauses, "json_extract(doc, '$."+k+"') = ?")
		args = append(args, v)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (c *collection) find(ctx context.Context, q querier, filter store.Filter, opts store.FindOptions) ([]store.Document, []int64, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return nil, nil, err
	}
	query := "SELECT seq, id, doc FROM documents WHERE " + where
	if opts.SortField != "" {
		if !store.ValidField(opts.SortField) {
			return nil, nil, fmt.Errorf("%w: %q", store.ErrInvalidField, opts.SortField)
		}
		dir := "ASC"
		if opts.SortDesc {
			dir = "DESC"
		}
		query += " ORDER BY json_extract(doc, '$." + opts.SortField + "') " + dir + ", seq ASC"
	} else {
		query += " ORDER BY seq ASC"
	}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var (
		docs []store.Document
		seqs []int64
	)
	for rows.Next() {
		var (
			seq int64
			id  string
			raw string
		)
		if err := rows.Scan(&seq, &id, &raw); err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		doc, err := store.DecodeDocument([]byte(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("decode %s document %s: %w", c.name, id, err)
		}
		doc[store.IDField] = id
		docs = append(docs, doc)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate %s: %w", c.name, err)
	}
	return docs, seqs, nil
}

func (c *collection) Find(ctx context.Context, filter store.Filter, opts store.FindOptions) ([]store.Document, error) {
	docs, _, err := c.find(ctx, c.db, filter, opts)
	if docs == nil && err == nil {
		docs = []store.Document{}
	}
	return docs, err
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	docs, _, err := c.find(ctx, c.db, filter, store.FindOptions{Limit: 1})
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
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		raw, err := encode(doc)
		if err != nil {
			return nil, err
		}
		id := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (collection, id, doc) VALUES (?, ?, ?)",
			c.name, id, raw); err != nil {
			return nil, fmt.Errorf("insert %s: %w", c.name, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return ids, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter store.Filter, set store.Document) (int64, error) {
	if _, ok := set[store.IDField]; ok {
		return 0, fmt.Errorf("%w: id is immutable", store.ErrInvalidField)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	docs, seqs, err := c.find(ctx, tx, filter, store.FindOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	merged := docs[0]
	for k, v := range set {
		merged[k] = v
	}
	raw, err := encode(merged)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE documents SET doc = ? WHERE seq = ?", raw, seqs[0]); err != nil {
		return 0, fmt.Errorf("update %s: %w", c.name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update: %w", err)
	}
	return 1, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM documents WHERE seq = (SELECT seq FROM documents WHERE "+where+" ORDER BY seq LIMIT 1)",
		args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.name, err)
	}
	return res.RowsAffected()
}

func (c *collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, "DELETE FROM documents WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.name, err)
	}
	return res.RowsAffected()
}

var _ store.Store = (*Store)(nil)
