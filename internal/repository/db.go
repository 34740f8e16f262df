package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder and DDL syntax.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

type Config struct {
	// URL is a postgres:// DSN, or a sqlite: path (sqlite::memory: for an
	// in-memory database).
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB is a database/sql handle plus the dialect its queries are written
// for.
type DB struct {
	sql     *sql.DB
	dialect Dialect
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// New wraps an open *sql.DB.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{sql: db, dialect: dialect, logger: logger}
}

// Open connects to Postgres through a pgx pool, or opens a SQLite file.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path, ok := sqlitePath(cfg.URL); ok {
		logger.Info("opening sqlite database", "path", path)
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("repository: open sqlite: %w", err)
		}
		// One writer at a time; also keeps :memory: on a single connection.
		db.SetMaxOpenConns(1)
		return New(db, SQLite, logger), nil
	}

	logger.Info("connecting to database", "dialect", Postgres.String())
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("repository: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "ucrf"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("repository: connect: %w", err)
	}

	d := New(stdlib.OpenDBFromPool(pool), Postgres, logger)
	d.pool = pool
	logger.Info("successfully connected to database")
	return d, nil
}

func sqlitePath(url string) (string, bool) {
	for _, p := range []string{"sqlite://", "sqlite:", "file:"} {
		if strings.HasPrefix(url, p) {
			if p == "file:" {
				return url, true
			}
			return strings.TrimPrefix(url, p), true
		}
	}
	return "", false
}

// Dialect returns the SQL dialect of the connection.
func (d *DB) Dialect() Dialect { return d.dialect }

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Close closes the database connections gracefully.
func (d *DB) Close() error {
	d.logger.Info("closing database connections")
	err := d.sql.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

// rebind rewrites ? placeholders into $n for Postgres.
func (d *DB) rebind(q string) string {
	if d.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migrate creates the tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	id := "BIGSERIAL PRIMARY KEY"
	if d.dialect == SQLite {
		id = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vehicles (
	id ` + id + `,
	make TEXT NOT NULL,
	model TEXT NOT NULL,
	year INTEGER NOT NULL,
	mileage INTEGER NOT NULL DEFAULT 0,
	engine_type TEXT,
	transmission TEXT
)`,
		`CREATE INDEX IF NOT EXISTS vehicles_identity_idx ON vehicles (make, model, year)`,
		`CREATE TABLE IF NOT EXISTS service_history (
	id ` + id + `,
	vehicle_id BIGINT NOT NULL REFERENCES vehicles (id),
	service_date TEXT NOT NULL,
	service_type TEXT NOT NULL,
	cost DOUBLE PRECISION NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS service_history_vehicle_idx ON service_history (vehicle_id)`,
	}
	for _, s := range stmts {
		if _, err := d.sql.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("repository: migrate: %w", err)
		}
	}
	return nil
}
