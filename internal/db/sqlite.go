package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS notification_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	category     TEXT NOT NULL,
	token_id     TEXT NOT NULL,
	counterparty TEXT NOT NULL DEFAULT '',
	amount       TEXT NOT NULL DEFAULT '',
	symbol       TEXT NOT NULL DEFAULT '',
	sent_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notification_history_token
	ON notification_history (token_id, category);
`

func OpenSqlite(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for SQLite: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = EXTRA;
		PRAGMA cache_size = -2000;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
	`)
	if err != nil {
		if err := db.Close(); err != nil {
			zap.L().Error("Failed to close SQLite", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to set SQLite pragmas: %w", err)
	}

	if _, err := db.Exec(historySchema); err != nil {
		if err := db.Close(); err != nil {
			zap.L().Error("Failed to close SQLite", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err = db.Ping(); err != nil {
		if err := db.Close(); err != nil {
			zap.L().Error("Failed to close SQLite", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to ping SQLite: %w", err)
	}

	zap.L().Info("Successfully opened SQLite database", zap.String("path", path))
	return db, nil
}
