package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is a durable Store backed by a single SQLite database.
// Uses WAL mode for concurrent read access while a worker writes.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path and
// applies the schema. Idempotent - safe to call against an existing file.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors under worker load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the document under (kind, keyParts), or nil if absent.
func (s *SQLite) Get(ctx context.Context, kind entity.Kind, keyParts []string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT lookup_id, meta FROM entities WHERE kind = ? AND key = ?
	`, string(kind), entity.CompositeKey(keyParts))

	var lookupID, meta string
	if err := row.Scan(&lookupID, &meta); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s %v: %w", kind, keyParts, err)
	}

	return &Document{
		Kind:     kind,
		Key:      append([]string(nil), keyParts...),
		LookupID: lookupID,
		Meta:     json.RawMessage(meta),
	}, nil
}

// Put stores the document, replacing any existing one under the same key.
func (s *SQLite) Put(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (kind, key, lookup_id, meta)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, key) DO UPDATE SET
			lookup_id = excluded.lookup_id,
			meta = excluded.meta
	`, string(doc.Kind), entity.CompositeKey(doc.Key), doc.LookupID, string(doc.Meta))
	if err != nil {
		return fmt.Errorf("put %s %v: %w", doc.Kind, doc.Key, err)
	}
	return nil
}

// Remove deletes the document under (kind, keyParts). Removing an absent
// document is a no-op.
func (s *SQLite) Remove(ctx context.Context, kind entity.Kind, keyParts []string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM entities WHERE kind = ? AND key = ?
	`, string(kind), entity.CompositeKey(keyParts))
	if err != nil {
		return fmt.Errorf("remove %s %v: %w", kind, keyParts, err)
	}
	return nil
}

// FindByLookupID returns all documents of a kind with the given lookup id,
// ordered by composite key.
func (s *SQLite) FindByLookupID(ctx context.Context, kind entity.Kind, lookupID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, meta FROM entities
		WHERE kind = ? AND lookup_id = ?
		ORDER BY key
	`, string(kind), lookupID)
	if err != nil {
		return nil, fmt.Errorf("find %s by lookup %s: %w", kind, lookupID, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var key, meta string
		if err := rows.Scan(&key, &meta); err != nil {
			return nil, fmt.Errorf("find %s by lookup %s: scan: %w", kind, lookupID, err)
		}
		out = append(out, Document{
			Kind:     kind,
			Key:      entity.SplitKey(key),
			LookupID: lookupID,
			Meta:     json.RawMessage(meta),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s by lookup %s: %w", kind, lookupID, err)
	}
	return out, nil
}
