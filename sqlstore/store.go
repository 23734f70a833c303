// Package sqlstore provides the database/sql backed record store. It runs
// compiled snapshot queries, loads word answers and keeps format metadata
// rows on SQLite (cgo or pure Go driver) and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asaidimu/go-cdibase/core/persistence"
	"github.com/asaidimu/go-cdibase/core/query"
	"github.com/asaidimu/go-cdibase/core/schema"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// dbRunner abstracts the common methods of *sql.DB and *sql.Tx so the same
// code serves transactional and non-transactional operations.
type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Options configures a Store.
type Options struct {
	// Driver is one of "sqlite3", "sqlite" or "pgx".
	Driver string
	DSN    string
	// Table is the snapshot table name. Defaults to "snapshots".
	Table  string
	Logger *zap.Logger
}

// Store is a RecordStore, AnswerLoader and FormatStore over database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	table   string
	logger  *zap.Logger
}

var (
	_ persistence.RecordStore  = (*Store)(nil)
	_ persistence.AnswerLoader = (*Store)(nil)
	_ persistence.FormatStore  = (*Store)(nil)
)

// Open connects to the configured database and checks the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	d, ok := dialects[opts.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", opts.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", opts.Driver, err)
	}
	if d.singleWriter {
		db.SetMaxOpenConns(1)
	}
	return New(db, opts.Driver, opts.Table, opts.Logger)
}

// New wraps an existing connection pool. driver selects the SQL dialect.
func New(db *sql.DB, driver, table string, logger *zap.Logger) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == "" {
		table = schema.SnapshotsCollection
	}
	return &Store{db: db, dialect: d, table: table, logger: logger}, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Table returns the snapshot table name.
func (s *Store) Table() string { return s.table }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// SelectSnapshots runs a compiled select query.
func (s *Store) SelectSnapshots(ctx context.Context, q *query.CompiledQuery) ([]schema.SnapshotMetadata, error) {
	if q.Mode != query.ModeSelect {
		return nil, fmt.Errorf("expected a select query, got %s", q.Mode)
	}
	statement := s.rebind(q.Statement)
	s.logger.Debug("Executing SQL SELECT", zap.String("sql", statement), zap.Any("params", q.Params))

	rows, err := s.db.QueryContext(ctx, statement, q.Params...)
	if err != nil {
		s.logger.Error("Failed to execute SELECT query", zap.Error(err), zap.String("sql", statement))
		return nil, fmt.Errorf("failed to execute SELECT query: %w", err)
	}
	defer rows.Close()

	docs, err := readRows(rows)
	if err != nil {
		return nil, err
	}
	records := make([]schema.SnapshotMetadata, 0, len(docs))
	for _, doc := range docs {
		record, err := schema.SnapshotFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot row: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// UpdateSnapshots runs a compiled soft delete or restore query in its own
// transaction.
func (s *Store) UpdateSnapshots(ctx context.Context, q *query.CompiledQuery) (int64, error) {
	if q.Mode != query.ModeSoftDelete && q.Mode != query.ModeRestore {
		return 0, fmt.Errorf("expected an update query, got %s", q.Mode)
	}
	statement := s.rebind(q.Statement)

	var affected int64
	err := s.inTx(ctx, func(tx dbRunner) error {
		s.logger.Debug("Executing SQL UPDATE", zap.String("sql", statement), zap.Any("params", q.Params))
		result, err := tx.ExecContext(ctx, statement, q.Params...)
		if err != nil {
			s.logger.Error("Failed to execute UPDATE query", zap.Error(err), zap.String("sql", statement))
			return fmt.Errorf("failed to execute UPDATE query: %w", err)
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// inTx runs fn in a transaction, committing on success and rolling back on
// any error.
func (s *Store) inTx(ctx context.Context, fn func(tx dbRunner) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) rebind(statement string) string {
	return query.Rebind(statement, s.dialect.placeholder)
}

// readRows reads all rows into documents keyed by column name. Text columns
// may arrive as []byte depending on the driver.
func readRows(rows *sql.Rows) ([]schema.Document, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []schema.Document
	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(schema.Document, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return results, nil
}
