package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	actionGetTransaction    = "get_transaction"
	actionSaveTransaction   = "save_transaction"
	actionDeleteTransaction = "delete_transaction"
	actionListTransactions  = "list_transactions"
	actionFindOpenIssue     = "find_open_issue"
)

var transactionColumns = []any{
	colID, colBookID, colUserID, colTransactionType, colStatus, colClosedAt, colCreatedAt, colUpdatedAt,
}

type transactionRow struct {
	id              string
	bookID          string
	userID          string
	transactionType string
	status          string
	closedAt        sql.NullTime
	createdAt       time.Time
	updatedAt       time.Time
}

// GetTransaction retrieves the transaction record with the given id.
func (s *Store) GetTransaction(ctx context.Context, transactionID uuid.UUID) (lending.Transaction, error) {
	selectStmt := s.selectTransactions().
		Where(goqu.Ex{colID: transactionID.String()})

	transactions, err := s.queryTransactions(ctx, actionGetTransaction, selectStmt)
	if err != nil {
		return lending.Transaction{}, err
	}

	if len(transactions) == 0 {
		return lending.Transaction{}, lending.ErrNotFound
	}

	return transactions[0], nil
}

// SaveTransaction inserts or replaces a transaction record.
func (s *Store) SaveTransaction(ctx context.Context, transaction lending.Transaction) error {
	var closedAt any
	if !transaction.ClosedAt.IsZero() {
		closedAt = transaction.ClosedAt
	}

	updates := goqu.Record{
		colBookID:          transaction.BookID.String(),
		colUserID:          transaction.UserID.String(),
		colTransactionType: string(transaction.Type),
		colStatus:          string(transaction.Status),
		colClosedAt:        closedAt,
		colCreatedAt:       transaction.CreatedAt,
		colUpdatedAt:       transaction.UpdatedAt,
	}

	row := goqu.Record{colID: transaction.ID.String()}
	for col, val := range updates {
		row[col] = val
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.transactionsTableName).
		Rows(row).
		OnConflict(goqu.DoUpdate(colID, updates))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	_, execErr := s.executeStatement(ctx, actionSaveTransaction, sqlQuery)

	return execErr
}

// DeleteTransaction removes the record with the given id or fails with
// lending.ErrNotFound.
func (s *Store) DeleteTransaction(ctx context.Context, transactionID uuid.UUID) error {
	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(s.transactionsTableName).
		Where(goqu.Ex{colID: transactionID.String()})

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, execErr := s.executeStatement(ctx, actionDeleteTransaction, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return lending.ErrNotFound
	}

	return nil
}

// ListTransactions returns all records in insertion order.
func (s *Store) ListTransactions(ctx context.Context) (lending.Transactions, error) {
	return s.queryTransactions(ctx, actionListTransactions, s.selectTransactions())
}

// ListTransactionsForUser returns the user's records in insertion order.
func (s *Store) ListTransactionsForUser(ctx context.Context, userID uuid.UUID) (lending.Transactions, error) {
	selectStmt := s.selectTransactions().
		Where(goqu.Ex{colUserID: userID.String()})

	return s.queryTransactions(ctx, actionListTransactions, selectStmt)
}

// FindOpenIssue returns the oldest approved, not yet closed issue record for
// the given book/user pair, or lending.ErrNotFound.
func (s *Store) FindOpenIssue(ctx context.Context, bookID uuid.UUID, userID uuid.UUID) (lending.Transaction, error) {
	selectStmt := s.selectTransactions().
		Where(
			goqu.Ex{
				colBookID:          bookID.String(),
				colUserID:          userID.String(),
				colTransactionType: string(lending.TransactionTypeIssue),
				colStatus:          string(lending.StatusApproved),
			},
			goqu.C(colClosedAt).IsNull(),
		).
		Limit(1)

	transactions, err := s.queryTransactions(ctx, actionFindOpenIssue, selectStmt)
	if err != nil {
		return lending.Transaction{}, err
	}

	if len(transactions) == 0 {
		return lending.Transaction{}, lending.ErrNotFound
	}

	return transactions[0], nil
}

func (s *Store) selectTransactions() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(s.transactionsTableName).
		Select(transactionColumns...).
		Order(goqu.I(colCreatedAt).Asc(), goqu.I(colID).Asc())
}

func (s *Store) queryTransactions(
	ctx context.Context,
	action string,
	selectStmt *goqu.SelectDataset,
) (lending.Transactions, error) {

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, action, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(ctx, rows)

	transactions := make(lending.Transactions, 0)

	for rows.Next() {
		row := transactionRow{}

		scanErr := rows.Scan(
			&row.id, &row.bookID, &row.userID, &row.transactionType,
			&row.status, &row.closedAt, &row.createdAt, &row.updatedAt,
		)
		if scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}

		transaction, buildErr := s.transactionFromRow(ctx, row)
		if buildErr != nil {
			return nil, buildErr
		}

		transactions = append(transactions, transaction)
	}

	return transactions, nil
}

func (s *Store) transactionFromRow(ctx context.Context, row transactionRow) (lending.Transaction, error) {
	id, idErr := uuid.Parse(row.id)
	bookID, bookIDErr := uuid.Parse(row.bookID)
	userID, userIDErr := uuid.Parse(row.userID)

	if parseErr := errors.Join(idErr, bookIDErr, userIDErr); parseErr != nil {
		s.logError(ctx, logMsgScanRowFailed, logAttrError, parseErr.Error())
		return lending.Transaction{}, errors.Join(lending.ErrScanningDBRowFailed, parseErr)
	}

	transaction := lending.Transaction{
		ID:        id,
		BookID:    bookID,
		UserID:    userID,
		Type:      lending.TransactionType(row.transactionType),
		Status:    lending.TransactionStatus(row.status),
		CreatedAt: row.createdAt,
		UpdatedAt: row.updatedAt,
	}

	if row.closedAt.Valid {
		transaction.ClosedAt = row.closedAt.Time
	}

	return transaction, nil
}
