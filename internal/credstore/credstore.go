// Package credstore reads Cursor's access token out of the editor's local
// state.vscdb SQLite database.
package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"
)

const (
	accessTokenKey = "cursorAuth/accessToken"
	itemTable      = "ItemTable"
)

// DefaultPath returns the location of state.vscdb for the running platform.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return PathFor(runtime.GOOS, home, xdg.DataHome), nil
}

// PathFor resolves state.vscdb for goos. dataHome is the platform's per-user
// application data directory (Application Support, LOCALAPPDATA).
func PathFor(goos, home, dataHome string) string {
	tail := filepath.Join("User", "globalStorage", "state.vscdb")
	switch goos {
	case "darwin", "windows":
		return filepath.Join(dataHome, "Cursor", tail)
	default:
		return filepath.Join(home, ".cursor", tail)
	}
}

// Reader looks up the access token in a state.vscdb file.
type Reader struct {
	path string
}

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

func (r *Reader) Path() string {
	return r.path
}

// AccessToken returns the stored token. A missing file or a missing row is
// reported as ok=false with a nil error: Cursor is not installed or nobody is
// signed in. Errors are reserved for a file that exists but can't be read.
func (r *Reader) AccessToken(ctx context.Context) (string, bool, error) {
	if r.path == "" {
		return "", false, nil
	}
	if _, err := os.Stat(r.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat credential store: %w", err)
	}

	conn, err := sql.Open("sqlite", readOnlyDSN(r.path))
	if err != nil {
		return "", false, fmt.Errorf("open credential store: %w", err)
	}
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return "", false, fmt.Errorf("open credential store: %w", err)
	}

	var value string
	err = conn.QueryRowContext(ctx, "SELECT value FROM "+itemTable+" WHERE key = ?", accessTokenKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query credential store: %w", err)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// readOnlyDSN builds a SQLite URI filename so the editor's database is never
// opened for writing.
func readOnlyDSN(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String()
}
