// Package history records each resolution attempt to a local SQLite
// database, an audit trail the reference C tool never had — a caller
// running parq unattended (cron, a diagnostics service) can later ask
// "what did we resolve, and how did it go" without re-instrumenting logs.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/kvanzuijlen/parq/internal/engine"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed resolution history.
type Store struct {
	conn *sql.DB
}

// Open opens or creates the SQLite database at path and brings its schema
// up to date.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("history migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(s.conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("history migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("history migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("history migration: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Entry is one resolution outcome to persist.
type Entry struct {
	Hostname string
	Success  bool
	Elapsed  time.Duration
	Result   engine.Result
	Err      error
}

// Record inserts one entry. A failed write is silently discarded (Record
// returns nothing), so it is never fatal to the resolution itself — history
// is a convenience, not a dependency of the resolve path.
func (s *Store) Record(ctx context.Context, e Entry) {
	var address sql.NullString
	var ttl, serverIndex sql.NullInt64
	var kind sql.NullString

	if e.Success {
		ip := net.IP(e.Result.Address[:])
		address = sql.NullString{String: ip.String(), Valid: true}
		ttl = sql.NullInt64{Int64: int64(e.Result.TTL), Valid: true}
		serverIndex = sql.NullInt64{Int64: int64(e.Result.ServerIndex), Valid: true}
	} else if qerr, ok := asQueryError(e.Err); ok {
		kind = sql.NullString{String: qerr.Kind.String(), Valid: true}
	}

	_, _ = s.conn.ExecContext(ctx, `
		INSERT INTO resolutions (hostname, success, address, ttl, server_index, kind, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Hostname, e.Success, address, ttl, serverIndex, kind, e.Elapsed.Milliseconds(),
	)
}

func asQueryError(err error) (*engine.QueryError, bool) {
	qerr, ok := err.(*engine.QueryError)
	return qerr, ok
}

// Recent returns the most recent n resolution records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT hostname, success, address, ttl, server_index, kind, elapsed_ms, created_at
		FROM resolutions ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query resolution history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var r Record
		var address, kind sql.NullString
		var ttl, serverIndex sql.NullInt64
		if err := rows.Scan(&r.Hostname, &r.Success, &address, &ttl, &serverIndex, &kind, &r.ElapsedMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resolution history row: %w", err)
		}
		r.Address = address.String
		r.TTL = int(ttl.Int64)
		r.ServerIndex = int(serverIndex.Int64)
		r.Kind = kind.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Record is one row read back from the history table.
type Record struct {
	Hostname    string
	Success     bool
	Address     string
	TTL         int
	ServerIndex int
	Kind        string
	ElapsedMS   int64
	CreatedAt   time.Time
}
