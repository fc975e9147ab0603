package lending_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/memoryengine"
	"github.com/AntonStoeckl/library-lending-go/test"
)

func Test_NewInventoryLedger_NilStore(t *testing.T) {
	_, err := lending.NewInventoryLedger(nil)
	assert.ErrorIs(t, err, lending.ErrNilBookStoreSupplied)
}

func Test_InventoryLedger_TryDecrement(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()
	ledger, err := lending.NewInventoryLedger(store)
	require.NoError(t, err)

	book := test.GivenBook(t, store, true, 2, 1)

	assert.NoError(t, ledger.TryDecrement(ctx, book.ID))

	stored, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.AvailableCopies)

	// no copy left, no side effect
	assert.ErrorIs(t, ledger.TryDecrement(ctx, book.ID), lending.ErrOutOfStock)

	stored, err = store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.AvailableCopies)
}

func Test_InventoryLedger_Increment(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()
	ledger, err := lending.NewInventoryLedger(store)
	require.NoError(t, err)

	book := test.GivenBook(t, store, true, 2, 1)

	assert.NoError(t, ledger.Increment(ctx, book.ID))

	stored, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.AvailableCopies)

	// all copies in stock, a further increment must be defended against
	assert.ErrorIs(t, ledger.Increment(ctx, book.ID), lending.ErrOverCapacity)

	stored, err = store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.AvailableCopies)
}

func Test_InventoryLedger_IsActive(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()
	ledger, err := lending.NewInventoryLedger(store)
	require.NoError(t, err)

	activeBook := test.GivenBook(t, store, true, 1, 1)
	inactiveBook := test.GivenBook(t, store, false, 1, 1)

	active, err := ledger.IsActive(ctx, activeBook.ID)
	assert.NoError(t, err)
	assert.True(t, active)

	active, err = ledger.IsActive(ctx, inactiveBook.ID)
	assert.NoError(t, err)
	assert.False(t, active)

	_, err = ledger.IsActive(ctx, test.GivenUniqueID(t))
	assert.ErrorIs(t, err, lending.ErrNotFound)
}

func Test_InventoryLedger_UnknownBook(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()
	ledger, err := lending.NewInventoryLedger(store)
	require.NoError(t, err)

	assert.ErrorIs(t, ledger.TryDecrement(ctx, test.GivenUniqueID(t)), lending.ErrNotFound)
	assert.ErrorIs(t, ledger.Increment(ctx, test.GivenUniqueID(t)), lending.ErrNotFound)
}

func Test_InventoryLedger_ConcurrentDecrements_ExactlyAvailableSucceed(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()
	ledger, err := lending.NewInventoryLedger(store)
	require.NoError(t, err)

	const totalCopies = 3
	const contenders = 10

	book := test.GivenActiveBook(t, store, totalCopies)

	var wg sync.WaitGroup
	results := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)

		go func(slot int) {
			defer wg.Done()
			results[slot] = ledger.TryDecrement(ctx, book.ID)
		}(i)
	}

	wg.Wait()

	successes := 0
	for _, result := range results {
		if result == nil {
			successes++
		} else {
			assert.ErrorIs(t, result, lending.ErrOutOfStock)
		}
	}

	assert.Equal(t, totalCopies, successes)

	stored, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.AvailableCopies)
}

func Test_InventoryLedger_ConcurrentMixedAdjustments_StayWithinBounds(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()
	ledger, err := lending.NewInventoryLedger(store)
	require.NoError(t, err)

	book := test.GivenBook(t, store, true, 2, 1)

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			_ = ledger.TryDecrement(ctx, book.ID)
		}()

		go func() {
			defer wg.Done()
			_ = ledger.Increment(ctx, book.ID)
		}()
	}

	wg.Wait()

	stored, getErr := store.GetBook(ctx, book.ID)
	require.NoError(t, getErr)
	assert.GreaterOrEqual(t, stored.AvailableCopies, 0)
	assert.LessOrEqual(t, stored.AvailableCopies, stored.TotalCopies)
}

func Test_InventoryLedger_PrefersAtomicStore(t *testing.T) {
	ctx := context.Background()
	atomicStore := &countingAtomicStore{Store: memoryengine.NewStore()}
	ledger, err := lending.NewInventoryLedger(atomicStore)
	require.NoError(t, err)

	book := test.GivenActiveBook(t, atomicStore.Store, 1)

	assert.NoError(t, ledger.TryDecrement(ctx, book.ID))
	assert.ErrorIs(t, ledger.TryDecrement(ctx, book.ID), lending.ErrOutOfStock)
	assert.NoError(t, ledger.Increment(ctx, book.ID))
	assert.Equal(t, 3, atomicStore.calls)
}

// countingAtomicStore upgrades the memory store with an atomic adjustment,
// counting the calls so tests can verify the ledger delegates to it.
type countingAtomicStore struct {
	*memoryengine.Store

	mu    sync.Mutex
	calls int
}

func (s *countingAtomicStore) TryAdjustAvailableCopies(ctx context.Context, bookID uuid.UUID, delta int) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return err
	}

	next := book.AvailableCopies + delta

	switch {
	case next < 0:
		return lending.ErrOutOfStock
	case next > book.TotalCopies:
		return lending.ErrOverCapacity
	}

	book.AvailableCopies = next

	return s.SaveBook(ctx, book)
}

var _ lending.AtomicBookStore = (*countingAtomicStore)(nil)
