// Package db keeps a local history of refresh results in sqlite.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zsprackett/cursor-usage/internal/usage"
)

// UsageSnapshot is one stored refresh result.
type UsageSnapshot struct {
	ID         int64     `json:"id"`
	Ts         time.Time `json:"ts"`
	Used       int       `json:"used"`
	Total      int       `json:"total"`
	Percentage float64   `json:"percentage"`
	Email      string    `json:"email,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type DB struct {
	sql *sql.DB
}

// Open opens the database at path, creating its directory. ":memory:" is
// accepted for tests.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &DB{sql: conn}, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) Migrate() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS usage_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ts_ms      INTEGER NOT NULL,
			used       INTEGER NOT NULL DEFAULT 0,
			total      INTEGER NOT NULL DEFAULT 0,
			percentage REAL    NOT NULL DEFAULT 0,
			email      TEXT    NOT NULL DEFAULT '',
			error      TEXT    NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("create usage_snapshots: %w", err)
	}
	if _, err := d.sql.Exec(`CREATE INDEX IF NOT EXISTS idx_usage_snapshots_ts ON usage_snapshots(ts_ms DESC)`); err != nil {
		return fmt.Errorf("create usage_snapshots index: %w", err)
	}
	return nil
}

func (d *DB) InsertUsageSnapshot(s usage.Snapshot) error {
	_, err := d.sql.Exec(
		`INSERT INTO usage_snapshots (ts_ms, used, total, percentage, email, error) VALUES (?,?,?,?,?,?)`,
		s.UpdatedAt.UnixMilli(), s.Used, s.Total, s.Percentage, s.Email, s.Error,
	)
	return err
}

// RecentUsageSnapshots returns up to limit rows, newest first.
func (d *DB) RecentUsageSnapshots(limit int) ([]UsageSnapshot, error) {
	rows, err := d.sql.Query(
		`SELECT id, ts_ms, used, total, percentage, email, error
		 FROM usage_snapshots
		 ORDER BY ts_ms DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageSnapshot
	for rows.Next() {
		var s UsageSnapshot
		var tsMs int64
		if err := rows.Scan(&s.ID, &tsMs, &s.Used, &s.Total, &s.Percentage, &s.Email, &s.Error); err != nil {
			return nil, err
		}
		s.Ts = time.UnixMilli(tsMs)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneUsageSnapshots deletes rows older than cutoff and reports how many.
func (d *DB) PruneUsageSnapshots(cutoff time.Time) (int64, error) {
	res, err := d.sql.Exec(`DELETE FROM usage_snapshots WHERE ts_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
