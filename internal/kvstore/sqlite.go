package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteKV is a KV backed by a local SQLite database, so the proxy is
// runnable standalone without a separate KV service. Grounded on
// internal/database/db.go's WAL-mode DSN and migration bootstrap, and
// internal/database/config.go's upsert-based key/value table, generalized
// to a single flat kv_entries table.
type SQLiteKV struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// OpenSQLiteKV opens or creates a SQLite-backed KV at path, running
// migrations to create the kv_entries table if needed.
func OpenSQLiteKV(path string) (*SQLiteKV, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite kv: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	kv := &SQLiteKV{conn: conn}

	if err := kv.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite kv: %w", err)
	}

	return kv, nil
}

func (kv *SQLiteKV) runMigrations() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(kv.conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (kv *SQLiteKV) Close() error {
	return kv.conn.Close()
}

// Get implements the KV interface.
func (kv *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	var value string
	err := kv.conn.QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv entry %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, overwriting any existing entry. Not part
// of the core KV interface (the proxy core only reads), but needed so
// SQLiteKV is a usable standalone store: operators seed it via this
// method or direct SQL.
func (kv *SQLiteKV) Set(ctx context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	_, err := kv.conn.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("set kv entry %s: %w", key, err)
	}
	return nil
}

// Health checks database connectivity.
func (kv *SQLiteKV) Health() error {
	return kv.conn.Ping()
}
