package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/avialab/temtrack/audit"
	"github.com/avialab/temtrack/db"
	"github.com/avialab/temtrack/internal/pathutil"
	"github.com/spf13/viper"
)

func dbConfigFromViper() db.Config {
	cfg := db.DefaultConfig()

	if v := viper.GetString("db.driver"); strings.TrimSpace(v) != "" {
		cfg.Driver = v
	}
	cfg.DSN = viper.GetString("db.dsn")
	cfg.AutoMigrate = viper.GetBool("db.automigrate")

	if v := viper.GetInt("db.pool.max_open_conns"); v > 0 {
		cfg.Pool.MaxOpenConns = v
	}
	if v := viper.GetInt("db.pool.max_idle_conns"); v > 0 {
		cfg.Pool.MaxIdleConns = v
	}
	if v := viper.GetDuration("db.pool.conn_max_lifetime"); v > 0 {
		cfg.Pool.ConnMaxLifetime = v
	}
	if v := viper.GetInt("db.sqlite.busy_timeout_ms"); v > 0 {
		cfg.SQLite.BusyTimeoutMs = v
	}
	if viper.IsSet("db.sqlite.wal") {
		cfg.SQLite.WAL = viper.GetBool("db.sqlite.wal")
	}
	if viper.IsSet("db.sqlite.foreign_keys") {
		cfg.SQLite.ForeignKeys = viper.GetBool("db.sqlite.foreign_keys")
	}
	return cfg
}

func auditSinkFromViper(log *slog.Logger) audit.Sink {
	jsonlPath := strings.TrimSpace(viper.GetString("audit.jsonl_path"))
	if jsonlPath == "" {
		home, err := os.UserHomeDir()
		if err == nil && strings.TrimSpace(home) != "" {
			jsonlPath = filepath.Join(home, ".temtrack", "review_audit.jsonl")
		}
	}
	jsonlPath = pathutil.ExpandHomePath(jsonlPath)
	if jsonlPath == "" {
		return audit.NopSink{}
	}

	sink, err := audit.NewJSONLSink(jsonlPath, viper.GetInt64("audit.rotate_max_bytes"))
	if err != nil {
		log.Warn("audit_sink_error", "path", jsonlPath, "error", err.Error())
		return audit.NopSink{}
	}
	log.Info("audit_enabled", "jsonl_path", jsonlPath)
	return sink
}
