package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querysql"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// Store is an ir.Link over database/sql.
//
// Placeholders are `?` on both drivers. A slice bound to one placeholder is
// expanded before the statement reaches the driver, and pagination is
// rendered as LIMIT/OFFSET.
type Store struct {
	db      *sql.DB
	driver  string
	logger  *zap.Logger
	metrics *Metrics
}

var _ ir.Link = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger every statement is logged to at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records statement counts and latencies.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Open connects to a database.
//
// For sqlite3 the DSN is a file path (or ":memory:"); the connection pool is
// limited to one connection and configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// For mysql the DSN is validated and parseTime is switched on so DATETIME
// columns scan as time.Time.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	switch driver {
	case DriverSQLite:
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer at a time, and an in-memory
		// database lives as long as its connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, driver: driver, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With(zap.String("component", "store"), zap.String("driver", driver))
	return s, nil
}

// OpenSQLite opens a SQLite database at path.
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	return Open(DriverSQLite, path, opts...)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Exec runs a statement that returns no rows, such as DDL or fixture
// inserts, and returns the number of rows affected. Slice parameters are
// expanded like everywhere else.
func (s *Store) Exec(ctx context.Context, sqlText string, params ...any) (int64, error) {
	return s.exec(ctx, "exec", sqlText, params)
}

func (s *Store) exec(ctx context.Context, op, sqlText string, params []any) (int64, error) {
	text, args, err := querysql.Expand(sqlText, params)
	if err != nil {
		return 0, &ir.ExecError{Op: op, SQL: sqlText, Err: err}
	}

	start := time.Now()
	res, err := s.db.ExecContext(ctx, text, args...)
	s.observe(op, text, len(args), start, err)
	if err != nil {
		return 0, &ir.ExecError{Op: op, SQL: text, Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, &ir.ExecError{Op: op, SQL: text, Err: err}
	}
	return n, nil
}

// observe logs one statement and feeds the metrics.
func (s *Store) observe(op, text string, params int, start time.Time, err error) {
	took := time.Since(start)
	if err != nil {
		s.logger.Debug("statement failed",
			zap.String("op", op),
			zap.String("sql", text),
			zap.Int("params", params),
			zap.Duration("took", took),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("statement",
			zap.String("op", op),
			zap.String("sql", text),
			zap.Int("params", params),
			zap.Duration("took", took),
		)
	}
	s.metrics.observe(op, took, err)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
