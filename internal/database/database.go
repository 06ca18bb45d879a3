// Package database is the sqlite store of the bot: guilds, their settings
// and everything players own.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

var (
	ErrNotEnough = errors.New("not enough items")
	ErrNotOwned  = errors.New("item not owned")
	ErrNoCoins   = errors.New("not enough coins")
)

type Database struct {
	db *sql.DB
}

func Open(path string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serialises the writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Msg(fmt.Sprintf("Database ready at %s", path))
	return &Database{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS guilds (
			guild_id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id TEXT NOT NULL,
			key TEXT NOT NULL,
			enabled INTEGER NOT NULL,
			PRIMARY KEY (guild_id, key)
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			balance INTEGER NOT NULL DEFAULT 0,
			xp INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (guild_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS inventory (
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			item TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			PRIMARY KEY (guild_id, user_id, item)
		);`,
		`CREATE TABLE IF NOT EXISTS equipment (
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			slot TEXT NOT NULL,
			item TEXT NOT NULL,
			PRIMARY KEY (guild_id, user_id, slot)
		);`,
		`CREATE TABLE IF NOT EXISTS catches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			fish TEXT NOT NULL,
			rarity TEXT NOT NULL,
			caught_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS catches_by_player ON catches(guild_id, user_id);`,
		`CREATE TABLE IF NOT EXISTS achievements (
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			unlocked_at INTEGER NOT NULL,
			PRIMARY KEY (guild_id, user_id, name)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return addColumn(db, "players", "xp", "INTEGER NOT NULL DEFAULT 0")
}

// Databases created before a column existed get it added
func addColumn(db *sql.DB, table string, column string, definition string) error {
	var found int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&found)
	if err != nil || found > 0 {
		return err
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	log.Info().Msg(fmt.Sprintf("Added column %s to table %s", column, table))
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Run fn inside a transaction, rolled back if fn fails
func (d *Database) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
