// Package journal keeps cast readings in SQLite together with a per-line
// record of the entropy each line was drawn from.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// ErrReadingNotFound is returned by Get and Entropy for unknown ids.
var ErrReadingNotFound = fmt.Errorf("%w: reading", faults.ErrNotFound)

// Fixed-width UTC timestamps so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS readings (
	reading_id       TEXT PRIMARY KEY,
	question         TEXT NOT NULL,
	method           TEXT NOT NULL,
	seed             TEXT,
	source           TEXT NOT NULL,
	source_used      TEXT NOT NULL,
	primary_number   INTEGER NOT NULL,
	relating_number  INTEGER,
	lines            TEXT NOT NULL,
	document         TEXT NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS readings_created_at ON readings(created_at);

CREATE TABLE IF NOT EXISTS entropy_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	reading_id  TEXT NOT NULL,
	position    INTEGER NOT NULL CHECK (position BETWEEN 1 AND 6),
	method      TEXT NOT NULL,
	coins       TEXT NOT NULL,
	line_value  INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	UNIQUE (reading_id, position),
	FOREIGN KEY (reading_id) REFERENCES readings(reading_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS cast_failures (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	method      TEXT NOT NULL,
	class       TEXT NOT NULL,
	reason      TEXT,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store persists readings in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region save
// Save stores r and one entropy_log row per cast line in a single
// transaction. Saving the same reading twice is an error.
func (s *Store) Save(ctx context.Context, r *engine.Reading) error {
	var doc strings.Builder
	if err := engine.Encode(&doc, r); err != nil {
		return err
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	createdStr := created.UTC().Format(timeLayout)

	var relating any
	if r.Relating != nil {
		relating = r.Relating.Hexagram.Number
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO readings (reading_id, question, method, seed, source, source_used,
		   primary_number, relating_number, lines, document, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Question, string(r.Method), nullIfEmpty(r.Seed), r.Source, r.SourceUsed(),
		r.Primary.Hexagram.Number, relating, r.Primary.Lines.String(), doc.String(), createdStr,
	)
	if err != nil {
		return fmt.Errorf("insert reading %s: %w", r.ID, err)
	}

	for i, t := range r.Entropy {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entropy_log (reading_id, position, method, coins, line_value, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, i+1, string(r.Method), encodeCoins(t.Coins), int(t.Value()), createdStr,
		)
		if err != nil {
			return fmt.Errorf("insert entropy %s/%d: %w", r.ID, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion save

// #region get
// Get reads back a stored reading. The document is checked for
// consistency the same way engine.Decode checks a file.
func (s *Store) Get(ctx context.Context, id string) (*engine.Reading, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM readings WHERE reading_id = ?`, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w %s", ErrReadingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reading %s: %w", id, err)
	}
	return engine.Decode(strings.NewReader(doc))
}

// #endregion get

// #region list
// List returns the most recent readings, newest first. A limit of zero or
// less means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT reading_id, question, method, source, source_used, primary_number,
		        relating_number, lines, created_at
		 FROM readings ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var method, lines, createdStr string
		var relating sql.NullInt64
		if err := rows.Scan(&sum.ID, &sum.Question, &method, &sum.Source, &sum.SourceUsed,
			&sum.Primary, &relating, &lines, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.Method = casting.Method(method)
		if relating.Valid {
			sum.Relating = int(relating.Int64)
		}
		if sum.Lines, err = reference.ParseLines(lines); err != nil {
			return nil, fmt.Errorf("%w: reading %s lines: %v", faults.ErrData, sum.ID, err)
		}
		sum.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion list

// #region entropy
// Entropy returns the provenance rows of a reading, bottom line first.
func (s *Store) Entropy(ctx context.Context, id string) ([]EntropyEntry, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM readings WHERE reading_id = ?`, id,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check reading: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w %s", ErrReadingNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, method, coins, line_value, created_at
		 FROM entropy_log WHERE reading_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list entropy: %w", err)
	}
	defer rows.Close()

	var out []EntropyEntry
	for rows.Next() {
		e := EntropyEntry{ReadingID: id}
		var method, coins, createdStr string
		var value int
		if err := rows.Scan(&e.Position, &method, &coins, &value, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Method = casting.Method(method)
		e.Value = reference.LineValue(value)
		if e.Coins, err = decodeCoins(coins); err != nil {
			return nil, fmt.Errorf("%w: reading %s line %d: %v", faults.ErrData, id, e.Position, err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion entropy

// #region failures
// LogFailure records a cast that produced no reading.
func (s *Store) LogFailure(ctx context.Context, f Failure) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cast_failures (method, class, reason, created_at) VALUES (?, ?, ?, ?)`,
		string(f.Method), f.Class, nullIfEmpty(f.Reason), f.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log failure: %w", err)
	}
	return nil
}

// Failures returns the most recent failures, newest first.
func (s *Store) Failures(ctx context.Context, limit int) ([]Failure, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT method, class, reason, created_at FROM cast_failures
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var method, createdStr string
		var reason sql.NullString
		if err := rows.Scan(&method, &f.Class, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		f.Method = casting.Method(method)
		f.Reason = reason.String
		f.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		out = append(out, f)
	}
	return out, rows.Err()
}

// #endregion failures

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeCoins(c [3]int) string {
	return fmt.Sprintf("%d,%d,%d", c[0], c[1], c[2])
}

func decodeCoins(s string) ([3]int, error) {
	var c [3]int
	parts := strings.Split(s, ",")
	if len(parts) != len(c) {
		return c, fmt.Errorf("coins %q", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return c, fmt.Errorf("coins %q: %w", s, err)
		}
		c[i] = n
	}
	return c, nil
}

// #endregion helpers
