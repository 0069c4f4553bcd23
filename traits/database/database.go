package database

import (
	"database/sql"
	"fmt"
	"os"

	"alphaboutique/config"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// InitDatabase opens the SQLite file that backs durable client storage
func InitDatabase(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DBPath, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.GetDatabasePath()+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	logger.Info("Database initialized successfully",
		zap.String("path", cfg.GetDatabasePath()),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return db, nil
}

// CreateTables creates the key-value table and its trigger
func CreateTables(db *sql.DB, logger *zap.Logger) error {
	kvTable := `
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`

	if _, err := db.Exec(kvTable); err != nil {
		logger.Error("Failed to create table", zap.String("table", "kv_store"), zap.Error(err))
		return err
	}
	logger.Info("Table created/verified", zap.String("table", "kv_store"))

	triggers := []struct {
		name string
		sql  string
	}{
		{
			name: "trigger_kv_store_updated_at",
			sql: `
				CREATE TRIGGER IF NOT EXISTS trigger_kv_store_updated_at
				AFTER UPDATE ON kv_store
				BEGIN
					UPDATE kv_store SET updated_at = CURRENT_TIMESTAMP WHERE key = NEW.key;
				END;`,
		},
	}

	for _, trigger := range triggers {
		if _, err := db.Exec(trigger.sql); err != nil {
			logger.Warn("Failed to create trigger",
				zap.String("trigger", trigger.name),
				zap.Error(err))
		} else {
			logger.Info("Trigger created/verified", zap.String("trigger", trigger.name))
		}
	}

	return nil
}
