package postgresengine

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	actionGetBook      = "get_book"
	actionSaveBook     = "save_book"
	actionAdjustCopies = "adjust_available_copies"
)

type bookRow struct {
	id              string
	isbn            string
	title           string
	isActive        bool
	totalCopies     int
	availableCopies int
}

// GetBook retrieves the book document with the given id.
func (s *Store) GetBook(ctx context.Context, bookID uuid.UUID) (lending.Book, error) {
	sqlQuery, buildErr := s.buildSelectBookQuery(bookID)
	if buildErr != nil {
		return lending.Book{}, buildErr
	}

	rows, queryErr := s.executeQuery(ctx, actionGetBook, sqlQuery)
	if queryErr != nil {
		return lending.Book{}, queryErr
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		return lending.Book{}, lending.ErrNotFound
	}

	row := bookRow{}

	scanErr := rows.Scan(&row.id, &row.isbn, &row.title, &row.isActive, &row.totalCopies, &row.availableCopies)
	if scanErr != nil {
		s.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
		return lending.Book{}, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
	}

	return s.bookFromRow(ctx, row)
}

// SaveBook inserts or replaces a book document.
func (s *Store) SaveBook(ctx context.Context, book lending.Book) error {
	sqlQuery, buildErr := s.buildUpsertBookQuery(book)
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.executeStatement(ctx, actionSaveBook, sqlQuery)

	return execErr
}

// TryAdjustAvailableCopies applies a bounds-checked availability change as a
// single conditional UPDATE, so the invariant
// 0 <= available_copies <= total_copies holds even across processes.
func (s *Store) TryAdjustAvailableCopies(ctx context.Context, bookID uuid.UUID, delta int) error {
	sqlQuery, buildErr := s.buildAdjustCopiesQuery(bookID, delta)
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := s.executeStatement(ctx, actionAdjustCopies, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return s.classifyRejectedAdjustment(ctx, bookID, delta)
	}

	return nil
}

// classifyRejectedAdjustment turns an ineffective conditional UPDATE into the
// matching typed failure: an absent book or a bounds violation.
func (s *Store) classifyRejectedAdjustment(ctx context.Context, bookID uuid.UUID, delta int) error {
	if _, err := s.GetBook(ctx, bookID); err != nil {
		return err
	}

	if delta < 0 {
		return lending.ErrOutOfStock
	}

	return lending.ErrOverCapacity
}

func (s *Store) buildSelectBookQuery(bookID uuid.UUID) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.booksTableName).
		Select(colID, colISBN, colTitle, colIsActive, colTotalCopies, colAvailableCopies).
		Where(goqu.Ex{colID: bookID.String()})

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(context.Background(), logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (s *Store) buildUpsertBookQuery(book lending.Book) (sqlQueryString, error) {
	updates := goqu.Record{
		colISBN:            book.ISBN,
		colTitle:           book.Title,
		colIsActive:        book.IsActive,
		colTotalCopies:     book.TotalCopies,
		colAvailableCopies: book.AvailableCopies,
	}

	row := goqu.Record{colID: book.ID.String()}
	for col, val := range updates {
		row[col] = val
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.booksTableName).
		Rows(row).
		OnConflict(goqu.DoUpdate(colID, updates))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(context.Background(), logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (s *Store) buildAdjustCopiesQuery(bookID uuid.UUID, delta int) (sqlQueryString, error) {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(s.booksTableName).
		Set(goqu.Record{colAvailableCopies: goqu.L(colAvailableCopies+" + ?", delta)}).
		Where(
			goqu.C(colID).Eq(bookID.String()),
			goqu.L(colAvailableCopies+" + ? >= 0", delta),
			goqu.L(colAvailableCopies+" + ? <= "+colTotalCopies, delta),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(context.Background(), logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return "", errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (s *Store) bookFromRow(ctx context.Context, row bookRow) (lending.Book, error) {
	id, parseErr := uuid.Parse(row.id)
	if parseErr != nil {
		s.logError(ctx, logMsgScanRowFailed, logAttrError, parseErr.Error())
		return lending.Book{}, errors.Join(lending.ErrScanningDBRowFailed, parseErr)
	}

	return lending.Book{
		ID:              id,
		ISBN:            row.isbn,
		Title:           row.title,
		IsActive:        row.isActive,
		TotalCopies:     row.totalCopies,
		AvailableCopies: row.availableCopies,
	}, nil
}
