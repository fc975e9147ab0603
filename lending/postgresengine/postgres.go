package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine/internal/adapters"
)

const (
	defaultBooksTableName        = "books"
	defaultTransactionsTableName = "transactions"

	logMsgBuildQueryFailed   = "failed to build query"
	logMsgDBQueryFailed      = "database query execution failed"
	logMsgDBExecFailed       = "database execution failed"
	logMsgCloseRowsFailed    = "failed to close database rows"
	logMsgScanRowFailed      = "failed to scan database row"
	logMsgRowsAffectedFailed = "failed to get rows affected count"
	logMsgSQLExecuted        = "executed sql for: "
	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrDurationMS        = "duration_ms"

	metricQueryDuration = "lending_store_query_duration_seconds"
	metricLabelAction   = "action"

	colID              = "id"
	colISBN            = "isbn"
	colTitle           = "title"
	colIsActive        = "is_active"
	colTotalCopies     = "total_copies"
	colAvailableCopies = "available_copies"
	colBookID          = "book_id"
	colUserID          = "user_id"
	colTransactionType = "tx_type"
	colStatus          = "status"
	colClosedAt        = "closed_at"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"

	dialectPostgres = "postgres"
)

type sqlQueryString = string

// Store implements lending.BookStore (including lending.AtomicBookStore) and
// lending.TransactionStore on PostgreSQL. It leverages a database adapter
// and supports customizable logging, metrics, and table configuration.
type Store struct {
	db                    adapters.DBAdapter
	booksTableName        string
	transactionsTableName string
	logger                lending.Logger
	contextualLogger      lending.ContextualLogger
	metrics               lending.MetricsCollector
}

// NewStoreFromPGXPool creates a new Store using a pgx pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, lending.ErrNilDatabaseConnection
	}

	return buildStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, lending.ErrNilDatabaseConnection
	}

	return buildStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, lending.ErrNilDatabaseConnection
	}

	return buildStore(adapters.NewSQLXAdapter(db), options...)
}

func buildStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	store := &Store{
		db:                    db,
		booksTableName:        defaultBooksTableName,
		transactionsTableName: defaultTransactionsTableName,
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// executeQuery runs a select statement and logs its timing.
func (s *Store) executeQuery(ctx context.Context, action string, sqlQuery sqlQueryString) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := s.db.Query(ctx, sqlQuery)
	s.recordQuery(ctx, action, sqlQuery, time.Since(start))

	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, errors.Join(lending.ErrQueryingStoreFailed, queryErr)
	}

	return rows, nil
}

// executeStatement runs a mutating statement, logs its timing, and returns
// the number of affected rows.
func (s *Store) executeStatement(ctx context.Context, action string, sqlQuery sqlQueryString) (int64, error) {
	start := time.Now()
	result, execErr := s.db.Exec(ctx, sqlQuery)
	s.recordQuery(ctx, action, sqlQuery, time.Since(start))

	if execErr != nil {
		s.logError(ctx, logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		return 0, errors.Join(lending.ErrExecutingStatementFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(ctx, logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())
		return 0, errors.Join(lending.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (s *Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (s *Store) recordQuery(ctx context.Context, action string, sqlQuery sqlQueryString, duration time.Duration) {
	s.logDebug(ctx, logMsgSQLExecuted+action, logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)

	if s.metrics != nil {
		s.metrics.RecordDuration(metricQueryDuration, duration, map[string]string{metricLabelAction: action})
	}
}

func (s *Store) logDebug(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Store) logWarn(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Store) logError(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// Interface guards.
var _ lending.BookStore = (*Store)(nil)
var _ lending.AtomicBookStore = (*Store)(nil)
var _ lending.TransactionStore = (*Store)(nil)
