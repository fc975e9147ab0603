package postgresengine

import (
	"github.com/AntonStoeckl/library-lending-go/lending"
)

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithBooksTableName sets the table name for book documents.
func WithBooksTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return lending.ErrEmptyTableNameSupplied
		}

		s.booksTableName = tableName

		return nil
	}
}

// WithTransactionsTableName sets the table name for transaction records.
func WithTransactionsTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return lending.ErrEmptyTableNameSupplied
		}

		s.transactionsTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Store.
//
// Debug level: SQL queries with execution timing (development use)
// Warn level: non-critical issues like cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger for the Store.
// When both loggers are configured, the contextual one wins.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetricsCollector sets the metrics collector for the Store.
// Query durations are recorded under "lending_store_query_duration_seconds"
// with an action label.
func WithMetricsCollector(metrics lending.MetricsCollector) Option {
	return func(s *Store) error {
		s.metrics = metrics
		return nil
	}
}
