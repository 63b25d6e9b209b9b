// Package store records solver sessions and their snapshots in SQLite or PostgreSQL.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store wraps the database connection and provides persistence operations.
type Store struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens or creates the database described by cfg and runs migrations.
func Open(cfg Config) (*Store, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch DialectType(cfg.Driver) {
	case DialectPostgres:
		dsn = cfg.Postgres.DSN()
	case DialectSQLite, "":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is empty")
		}
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if DialectType(cfg.Driver) == DialectPostgres {
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	} else {
		// One writer keeps WAL checkpoints and PRAGMAs on a single connection
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			sample TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			seed BIGINT NOT NULL,
			tile_width INTEGER NOT NULL,
			tile_height INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			catalog TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS snapshots (
			id %s,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			step INTEGER NOT NULL,
			known INTEGER NOT NULL,
			cells TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, step)
		)`, s.dialect.AutoIncrementPrimaryKey()),

		// Indexes for common queries
		`CREATE INDEX IF NOT EXISTS idx_sessions_fingerprint ON sessions(fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_session_id ON snapshots(session_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
