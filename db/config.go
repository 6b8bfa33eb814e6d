// Package db opens and migrates the annotation service database.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avialab/temtrack/internal/pathutil"
)

type Config struct {
	Driver      string
	DSN         string
	AutoMigrate bool

	Pool   PoolConfig
	SQLite SQLiteConfig
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SQLiteConfig struct {
	WAL           bool
	BusyTimeoutMs int
	ForeignKeys   bool
}

func DefaultConfig() Config {
	return Config{
		Driver:      "sqlite",
		AutoMigrate: true,
		Pool: PoolConfig{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		SQLite: SQLiteConfig{
			WAL:           true,
			BusyTimeoutMs: 5000,
			ForeignKeys:   true,
		},
	}
}

// ResolveSQLiteDSN expands a file DSN to an absolute path, creating the
// parent directory. An empty DSN defaults to ~/.temtrack/temtrack.db.
// ":memory:" passes through untouched.
func ResolveSQLiteDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") {
		return dsn, nil
	}
	if dsn == "" {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return "", fmt.Errorf("cannot resolve default db path: %w", err)
		}
		dsn = filepath.Join(home, ".temtrack", "temtrack.db")
	}
	dsn = pathutil.ExpandHomePath(dsn)
	dir := filepath.Dir(dsn)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("create db directory: %w", err)
		}
	}
	return dsn, nil
}
