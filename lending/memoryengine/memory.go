// Package memoryengine provides an in-memory implementation of the lending
// storage interfaces for tests, demos, and small deployments. It keeps
// transactions in insertion order and is safe for concurrent use.
package memoryengine

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

var ErrInvalidBooksJSON = errors.New("books json is not valid")

// Store implements lending.BookStore and lending.TransactionStore in memory.
type Store struct {
	mu           sync.RWMutex
	books        map[uuid.UUID]lending.Book
	transactions map[uuid.UUID]lending.Transaction
	order        []uuid.UUID // transaction insertion order
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		books:        make(map[uuid.UUID]lending.Book),
		transactions: make(map[uuid.UUID]lending.Transaction),
	}
}

// GetBook returns the book with the given id or lending.ErrNotFound.
func (s *Store) GetBook(_ context.Context, bookID uuid.UUID) (lending.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, exists := s.books[bookID]
	if !exists {
		return lending.Book{}, lending.ErrNotFound
	}

	return book, nil
}

// SaveBook inserts or replaces a book document.
func (s *Store) SaveBook(_ context.Context, book lending.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[book.ID] = book

	return nil
}

// LoadBooksJSON seeds the store with a JSON array of books, e.g. a fixture
// produced by the catalog subsystem.
func (s *Store) LoadBooksJSON(data []byte) error {
	if !jsoniter.ConfigFastest.Valid(data) {
		return ErrInvalidBooksJSON
	}

	var books lending.Books
	if err := jsoniter.ConfigFastest.Unmarshal(data, &books); err != nil {
		return errors.Join(ErrInvalidBooksJSON, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range books {
		s.books[book.ID] = book
	}

	return nil
}

// DumpTransactionsJSON renders all transaction records in insertion order,
// mainly for demos and debugging.
func (s *Store) DumpTransactionsJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return jsoniter.ConfigFastest.Marshal(s.listLocked())
}

// GetTransaction returns the record with the given id or lending.ErrNotFound.
func (s *Store) GetTransaction(_ context.Context, transactionID uuid.UUID) (lending.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transaction, exists := s.transactions[transactionID]
	if !exists {
		return lending.Transaction{}, lending.ErrNotFound
	}

	return transaction, nil
}

// SaveTransaction inserts or replaces a transaction record.
func (s *Store) SaveTransaction(_ context.Context, transaction lending.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[transaction.ID]; !exists {
		s.order = append(s.order, transaction.ID)
	}

	s.transactions[transaction.ID] = transaction

	return nil
}

// DeleteTransaction removes the record with the given id or fails with
// lending.ErrNotFound.
func (s *Store) DeleteTransaction(_ context.Context, transactionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[transactionID]; !exists {
		return lending.ErrNotFound
	}

	delete(s.transactions, transactionID)

	s.order = slices.DeleteFunc(s.order, func(id uuid.UUID) bool {
		return id == transactionID
	})

	return nil
}

// ListTransactions returns all records in insertion order.
func (s *Store) ListTransactions(_ context.Context) (lending.Transactions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(), nil
}

// ListTransactionsForUser returns the user's records in insertion order.
func (s *Store) ListTransactionsForUser(_ context.Context, userID uuid.UUID) (lending.Transactions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make(lending.Transactions, 0)

	for _, id := range s.order {
		if transaction := s.transactions[id]; transaction.UserID == userID {
			transactions = append(transactions, transaction)
		}
	}

	return transactions, nil
}

// FindOpenIssue returns the oldest approved, not yet closed issue record for
// the given book/user pair, or lending.ErrNotFound.
func (s *Store) FindOpenIssue(_ context.Context, bookID uuid.UUID, userID uuid.UUID) (lending.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		transaction := s.transactions[id]

		if transaction.BookID == bookID && transaction.UserID == userID && transaction.IsOpenIssue() {
			return transaction, nil
		}
	}

	return lending.Transaction{}, lending.ErrNotFound
}

func (s *Store) listLocked() lending.Transactions {
	transactions := make(lending.Transactions, 0, len(s.order))

	for _, id := range s.order {
		transactions = append(transactions, s.transactions[id])
	}

	return transactions
}

// Interface guards.
var _ lending.BookStore = (*Store)(nil)
var _ lending.TransactionStore = (*Store)(nil)
