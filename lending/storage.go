package lending

import (
	"context"

	"github.com/google/uuid"
)

// Book is the catalog subsystem's document as seen by this core.
// The workflow reads the active flag and mutates the availability counters,
// the latter only ever through the InventoryLedger.
//
// Invariant: 0 <= AvailableCopies <= TotalCopies, observable from outside
// any single mutation.
type Book struct {
	ID              uuid.UUID `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	IsActive        bool      `json:"isActive"`
	TotalCopies     int       `json:"totalCopies"`
	AvailableCopies int       `json:"availableCopies"`
}

// Books is an alias type for a slice of Book.
type Books = []Book

// BookStore is the document-store boundary for Book entities.
// Implementations must return errors matching ErrNotFound (via errors.Is)
// for absent books.
type BookStore interface {
	GetBook(ctx context.Context, bookID uuid.UUID) (Book, error)
	SaveBook(ctx context.Context, book Book) error
}

// AtomicBookStore is implemented by stores that can apply a bounds-checked
// availability change in a single atomic statement (e.g. a conditional SQL
// UPDATE). The ledger prefers this over its own read-modify-write cycle,
// which makes the bounds invariant hold even across processes.
//
// TryAdjustAvailableCopies must fail with ErrOutOfStock when a negative delta
// would push AvailableCopies below zero, with ErrOverCapacity when a positive
// delta would exceed TotalCopies, and with ErrNotFound for absent books.
type AtomicBookStore interface {
	BookStore
	TryAdjustAvailableCopies(ctx context.Context, bookID uuid.UUID, delta int) error
}

// TransactionStore is the document-store boundary for Transaction records.
// Implementations must return errors matching ErrNotFound (via errors.Is)
// for absent records, and must list records in insertion order.
type TransactionStore interface {
	GetTransaction(ctx context.Context, transactionID uuid.UUID) (Transaction, error)
	SaveTransaction(ctx context.Context, transaction Transaction) error
	DeleteTransaction(ctx context.Context, transactionID uuid.UUID) error
	ListTransactions(ctx context.Context) (Transactions, error)
	ListTransactionsForUser(ctx context.Context, userID uuid.UUID) (Transactions, error)

	// FindOpenIssue returns the oldest approved, not yet closed issue record
	// for the given book/user pair, or ErrNotFound.
	FindOpenIssue(ctx context.Context, bookID uuid.UUID, userID uuid.UUID) (Transaction, error)
}
