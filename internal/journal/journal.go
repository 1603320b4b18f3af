package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sysdaemon/internal/fileutil"
)

// Entry is one journaled log line.
type Entry struct {
	ID      int64
	Time    time.Time
	Level   string
	Daemon  string
	Message string
}

// Journal appends and queries log entries backed by SQLite.
type Journal struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}
	if err := fileutil.EnsureParentDir(path, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// Both the parent and the daemon child may hold the journal open.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal %s: %s: %w", path, pragma, err)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append stores an entry. A zero Time is replaced with the current time.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	ctx = orBackground(ctx)
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	return whileBusy(ctx, func() error {
		_, err := j.db.ExecContext(ctx,
			"INSERT INTO entries (ts, level, daemon, message) VALUES (?, ?, ?, ?)",
			entry.Time.UnixNano(), entry.Level, entry.Daemon, entry.Message,
		)
		return err
	})
}

// Recent returns up to limit entries, oldest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	ctx = orBackground(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, ts, level, daemon, message FROM entries ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry Entry
			ts    int64
		)
		if err := rows.Scan(&entry.ID, &ts, &entry.Level, &entry.Daemon, &entry.Message); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entry.Time = time.Unix(0, ts)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	slices.Reverse(entries)
	return entries, nil
}

// Prune deletes entries older than cutoff and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = orBackground(ctx)
	var removed int64
	err := whileBusy(ctx, func() error {
		res, err := j.db.ExecContext(ctx, "DELETE FROM entries WHERE ts < ?", cutoff.UnixNano())
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return removed, nil
}
