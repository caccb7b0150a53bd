// Package sqlite implements a read-only keyword index over a SQLite
// snapshot, for deployments without a reachable PostgreSQL instance.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/cvelab/vulnenrich/matcher/keyword"
)

// Snapshot is a handle to a SQLite keyword index snapshot.
type Snapshot struct {
	db *sql.DB
}

var _ keyword.Source = (*Snapshot)(nil)

// Open opens the named SQLite database read-only and interprets it as a
// keyword index snapshot.
//
// Must be a file on-disk. This is a limitation of the underlying SQLite
// library.
//
// The returned Snapshot must have its Close method called, or the process
// may panic.
func Open(f string) (*Snapshot, error) {
	u := url.URL{
		Scheme: `file`,
		Opaque: f,
		RawQuery: url.Values{
			"_pragma": {
				"query_only(1)",
			},
		}.Encode(),
	}
	db, err := sql.Open(`sqlite`, u.String())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s := Snapshot{db: db}
	_, file, line, _ := runtime.Caller(1)
	runtime.SetFinalizer(&s, func(s *Snapshot) {
		panic(fmt.Sprintf("%s:%d: keyword snapshot not closed", file, line))
	})
	return &s, nil
}

// Close releases held resources.
//
// This must be called when the Snapshot is no longer needed, or the process
// may panic.
func (s *Snapshot) Close() error {
	runtime.SetFinalizer(s, nil)
	return s.db.Close()
}

// Identifiers implements keyword.Source.
func (s *Snapshot) Identifiers(ctx context.Context, kw string) ([]string, error) {
	const query = `SELECT identifier FROM keyword_identifier WHERE keyword = ?;`
	rows, err := s.db.QueryContext(ctx, query, kw)
	if err != nil {
		return nil, fmt.Errorf("sqlite: keyword query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan error: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: sql error: %w", err)
	}
	return out, nil
}

// Popularity implements keyword.Source.
func (s *Snapshot) Popularity(ctx context.Context, ids []string) (map[string]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		`SELECT identifier, rank FROM identifier_popularity WHERE identifier IN (?%s);`,
		strings.Repeat(",?", len(ids)-1),
	)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: popularity query: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int, len(ids))
	for rows.Next() {
		var (
			id   string
			rank int
		)
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, fmt.Errorf("sqlite: scan error: %w", err)
		}
		out[id] = rank
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: sql error: %w", err)
	}
	return out, nil
}
