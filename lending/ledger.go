package lending

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InventoryLedger owns the availability counters of books and guarantees
// 0 <= AvailableCopies <= TotalCopies under concurrent access.
//
// Reading the count, deciding eligibility, and writing the new count form a
// single critical section per book: mutations for the same book serialize,
// mutations for different books never block one another. When the underlying
// store implements AtomicBookStore, the bounds check is pushed down into a
// single atomic statement instead.
type InventoryLedger struct {
	books BookStore

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewInventoryLedger creates an InventoryLedger on top of the given BookStore.
func NewInventoryLedger(books BookStore) (*InventoryLedger, error) {
	if books == nil {
		return nil, ErrNilBookStoreSupplied
	}

	return &InventoryLedger{
		books: books,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}, nil
}

// TryDecrement takes one available copy of the given book.
// It fails with ErrOutOfStock when no copy is left, without side effect.
func (l *InventoryLedger) TryDecrement(ctx context.Context, bookID uuid.UUID) error {
	return l.adjust(ctx, bookID, -1)
}

// Increment gives one available copy of the given book back.
// It fails with ErrOverCapacity when the count would exceed the total stock;
// that should not occur under correct workflow use but is defended against,
// e.g. for a double-completed return.
func (l *InventoryLedger) Increment(ctx context.Context, bookID uuid.UUID) error {
	return l.adjust(ctx, bookID, +1)
}

// IsActive reads the book's active flag.
func (l *InventoryLedger) IsActive(ctx context.Context, bookID uuid.UUID) (bool, error) {
	book, err := l.books.GetBook(ctx, bookID)
	if err != nil {
		return false, err
	}

	return book.IsActive, nil
}

func (l *InventoryLedger) adjust(ctx context.Context, bookID uuid.UUID, delta int) error {
	if atomicBooks, ok := l.books.(AtomicBookStore); ok {
		return atomicBooks.TryAdjustAvailableCopies(ctx, bookID, delta)
	}

	lock := l.lockFor(bookID)
	lock.Lock()
	defer lock.Unlock()

	book, err := l.books.GetBook(ctx, bookID)
	if err != nil {
		return err
	}

	next := book.AvailableCopies + delta

	if next < 0 {
		return ErrOutOfStock
	}

	if next > book.TotalCopies {
		return ErrOverCapacity
	}

	book.AvailableCopies = next

	return l.books.SaveBook(ctx, book)
}

// lockFor returns the mutex scoped to a single book id, creating it lazily.
// Locks are never evicted; the map is bounded by the size of the catalog.
func (l *InventoryLedger) lockFor(bookID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, exists := l.locks[bookID]
	if !exists {
		lock = &sync.Mutex{}
		l.locks[bookID] = lock
	}

	return lock
}
