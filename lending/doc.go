// Package lending implements the borrowing workflow of a library lending system:
// the transaction state machine (request -> approval/rejection -> return ->
// completion) and the inventory ledger that keeps a book's available-copy count
// within bounds under concurrent access.
//
// Key types:
//   - Transaction: one borrowing or returning action and its lifecycle status
//   - InventoryLedger: owns a book's copy counters, serialized per book
//   - StateMachine: validates and applies status transitions, coordinating
//     with the ledger when a transition changes stock
//   - LendingService: the facade binding authorization to each operation
//
// Storage is abstracted behind the BookStore and TransactionStore interfaces;
// the postgresengine and memoryengine packages provide implementations.
//
// Common usage pattern:
//
//	store := memoryengine.NewStore()
//	ledger, _ := lending.NewInventoryLedger(store)
//	service, _ := lending.NewLendingService(gate, store, ledger)
//
//	record, err := service.RequestBook(ctx, credential, bookID)
//	if err != nil {
//		// handle error
//	}
//	approved, err := service.SetStatus(ctx, adminCredential, record.ID, lending.StatusApproved)
package lending
