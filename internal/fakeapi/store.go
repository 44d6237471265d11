// Package fakeapi serves the demo REST contract from a local SQLite database,
// so the CLI and TUI work offline and tests can run end to end.
package fakeapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

// Query narrows a collection listing.
type Query struct {
	// Eq holds top-level field equality filters (userId=1).
	Eq    map[string]string
	Limit int
	Start int
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether name can be used as an equality filter.
func ValidField(name string) bool { return fieldName.MatchString(name) }

// Store keeps every record as a JSON document keyed by (resource, id).
type Store struct {
	db *sql.DB
}

// Open opens path, or a private in-memory database when path is empty.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: an in-memory database lives and dies with it, and writes
	// are serialized without busy retries.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	var pragmas []string
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;")
	}
	pragmas = append(pragmas, `CREATE TABLE IF NOT EXISTS records (
		resource TEXT NOT NULL,
		id INTEGER NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY(resource, id)
	);`)
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) List(ctx context.Context, resource string, q Query) ([]map[string]any, error) {
	var sb strings.Builder
	args := []any{resource}
	sb.WriteString(`SELECT body FROM records WHERE resource = ?`)

	keys := make([]string, 0, len(q.Eq))
	for k := range q.Eq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !ValidField(k) {
			return nil, fmt.Errorf("invalid filter field %q", k)
		}
		// Booleans compare as "true"/"false", everything else by its text form.
		sb.WriteString(` AND (CASE json_type(body, ?) WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' ELSE CAST(json_extract(body, ?) AS TEXT) END) = ?`)
		path := "$." + k
		args = append(args, path, path, q.Eq[k])
	}

	limit := -1
	if q.Limit > 0 {
		limit = q.Limit
	}
	start := 0
	if q.Start > 0 {
		start = q.Start
	}
	sb.WriteString(` ORDER BY id LIMIT ? OFFSET ?`)
	args = append(args, limit, start)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		rec, err := decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, resource string, id int) (map[string]any, error) {
	return get(ctx, s.db, resource, id)
}

// Create stores body under the next free id (max+1) and returns the stored record.
func (s *Store) Create(ctx context.Context, resource string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var id int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM records WHERE resource = ?`, resource).Scan(&id); err != nil {
			return err
		}
		rec := clone(body)
		rec["id"] = id
		if err := put(ctx, tx, resource, id, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roundTrip(out)
}

// Patch applies body to the record as a JSON merge patch: objects merge
// recursively and null removes a key.
func (s *Store) Patch(ctx context.Context, resource string, id int, body map[string]any) (map[string]any, error) {
	return s.rewrite(ctx, resource, id, func(cur map[string]any) map[string]any {
		return mergePatch(cur, body)
	})
}

// Replace swaps the whole record for body, keeping its id.
func (s *Store) Replace(ctx context.Context, resource string, id int, body map[string]any) (map[string]any, error) {
	return s.rewrite(ctx, resource, id, func(map[string]any) map[string]any {
		return clone(body)
	})
}

func (s *Store) rewrite(ctx context.Context, resource string, id int, fn func(map[string]any) map[string]any) (map[string]any, error) {
	var out map[string]any
	err := s.tx(ctx, func(tx *sql.Tx) error {
		cur, err := get(ctx, tx, resource, id)
		if err != nil {
			return err
		}
		next := fn(cur)
		next["id"] = id
		if err := put(ctx, tx, resource, id, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roundTrip(out)
}

func (s *Store) Delete(ctx context.Context, resource string, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE resource = ? AND id = ?`, resource, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Import upserts records that already carry a numeric id.
func (s *Store) Import(ctx context.Context, resource string, recs []map[string]any) (int, error) {
	n := 0
	err := s.tx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			id, ok := recordID(rec)
			if !ok {
				return fmt.Errorf("%s: record without numeric id", resource)
			}
			if err := put(ctx, tx, resource, id, rec); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (s *Store) Count(ctx context.Context, resource string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE resource = ?`, resource).Scan(&n)
	return n, err
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryer, resource string, id int) (map[string]any, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body FROM records WHERE resource = ? AND id = ?`, resource, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(body)
}

func put(ctx context.Context, tx *sql.Tx, resource string, id int, rec map[string]any) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO records(resource, id, body) VALUES(?, ?, ?)
		ON CONFLICT(resource, id) DO UPDATE SET body = excluded.body`, resource, id, string(b))
	return err
}

func decode(body string) (map[string]any, error) {
	var rec map[string]any
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("corrupt record: %w", err)
	}
	return rec, nil
}

// roundTrip normalizes Go values (int ids) to their decoded JSON form.
func roundTrip(rec map[string]any) (map[string]any, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return decode(string(b))
}

func recordID(rec map[string]any) (int, bool) {
	switch v := rec["id"].(type) {
	case float64:
		if v == float64(int(v)) && v > 0 {
			return int(v), true
		}
	case int:
		return v, v > 0
	}
	return 0, false
}

func mergePatch(dst, patch map[string]any) map[string]any {
	for k, v := range patch {
		switch pv := v.(type) {
		case nil:
			delete(dst, k)
		case map[string]any:
			cur, _ := dst[k].(map[string]any)
			if cur == nil {
				cur = map[string]any{}
			}
			dst[k] = mergePatch(cur, pv)
		default:
			dst[k] = v
		}
	}
	return dst
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
