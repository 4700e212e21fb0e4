package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SQLConfig configures the sqlite/libsql backend. Exactly one of Path or URL
// is used; URL wins when both are set.
type SQLConfig struct {
	// Path is a local database file (or ":memory:"). Parent directories are
	// created on open.
	Path string

	// URL is a remote libsql database, e.g. libsql://jobs-acme.turso.io.
	URL string

	// AuthToken is added to URL as authToken unless the URL already has one.
	AuthToken string
}

// remoteSchemes lists the URL schemes go-libsql accepts for remote databases.
var remoteSchemes = map[string]bool{"libsql": true, "https": true, "http": true, "wss": true, "ws": true}

func buildDSN(cfg SQLConfig) (string, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		return remoteDSN(raw, cfg.AuthToken)
	}
	return localDSN(strings.TrimSpace(cfg.Path))
}

func remoteDSN(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	if !remoteSchemes[u.Scheme] || u.Host == "" {
		return "", fmt.Errorf("store url %q must be libsql://, https:// or wss:// with a host", raw)
	}
	if token = strings.TrimSpace(token); token != "" {
		q := u.Query()
		if q.Get("authToken") == "" {
			q.Set("authToken", token)
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}

func localDSN(path string) (string, error) {
	switch {
	case path == "":
		return "", errors.New("job store path or url is required")
	case path == ":memory:":
		return path, nil
	case isRemoteDSN(path) || strings.HasPrefix(path, "libsql:"):
		return "", fmt.Errorf("job store path %q looks like a remote database; set store.url instead", path)
	case strings.HasPrefix(path, "file:"):
		local, err := extractFilePath(path)
		if err != nil {
			return "", err
		}
		return path, ensureStoreDir(local)
	}
	if err := ensureStoreDir(path); err != nil {
		return "", err
	}
	return "file:" + filepath.Clean(path), nil
}

// isRemoteDSN reports whether dsn points at a remote libsql server.
func isRemoteDSN(dsn string) bool {
	u, err := url.Parse(dsn)
	return err == nil && remoteSchemes[u.Scheme] && u.Host != ""
}

func extractFilePath(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}
	if parsed.Path != "" {
		return strings.TrimPrefix(parsed.Path, "//"), nil
	}
	return strings.TrimPrefix(parsed.Opaque, "//"), nil
}

func configureLocalSQLite(ctx context.Context, db *sql.DB, dsn string) error {
	if db == nil {
		return errors.New("store connection is nil")
	}
	if dsn == ":memory:" {
		// Each new connection to :memory: is a fresh database.
		db.SetMaxOpenConns(1)
		return nil
	}
	if !strings.HasPrefix(dsn, "file:") {
		return nil
	}

	// Keep a single connection and use WAL to reduce lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	var busyTimeout int
	if err := db.QueryRowContext(ctx, "PRAGMA busy_timeout=5000").Scan(&busyTimeout); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	return nil
}

func ensureStoreDir(path string) error {
	if strings.TrimSpace(path) == "" || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}

	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
