package lending

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	transitionApprove  transitionEvent = "approve"
	transitionReject   transitionEvent = "reject"
	transitionComplete transitionEvent = "complete"
)

const (
	logMsgCompensatingLedgerFailed = "compensating ledger call failed after storage error"
	logAttrTransactionID           = "transaction_id"
	logAttrBookID                  = "book_id"
	logAttrError                   = "error"
)

type transitionEvent string

// checkTransition implements the transition table as a pure function.
// It returns ErrInvalidTransition without touching the record when the
// requested move is not permitted from the record's current state:
//
//	pending  --approve--> approved
//	pending  --reject---> rejected   (terminal)
//	approved --complete-> completed  (terminal, return records only)
func checkTransition(transaction Transaction, event transitionEvent) error {
	switch event {
	case transitionApprove, transitionReject:
		if transaction.Status != StatusPending {
			return ErrInvalidTransition
		}

	case transitionComplete:
		if transaction.Type != TransactionTypeReturn || transaction.Status != StatusApproved {
			return ErrInvalidTransition
		}

	default:
		return ErrInvalidTransition
	}

	return nil
}

// StateMachine validates and applies status transitions on Transaction
// records, coordinating with the InventoryLedger when a transition must also
// change copy counts. Ledger failures abort the transition before the record
// is touched, so OutOfStock, OverCapacity, and InvalidTransition always leave
// all state unchanged.
//
// Transitions for the same record serialize: reading the status, deciding,
// and writing the new status form one critical section per record, so two
// racing approvals of one record cannot both take a copy from the ledger.
type StateMachine struct {
	transactions TransactionStore
	ledger       *InventoryLedger
	logger       Logger
	clock        func() time.Time
	locks        *recordLocks
}

// recordLocks hands out one mutex per transaction record, created lazily.
// Locks are never evicted; the map is bounded by the number of records.
type recordLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (r *recordLocks) lockFor(transactionID uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, exists := r.locks[transactionID]
	if !exists {
		lock = &sync.Mutex{}
		r.locks[transactionID] = lock
	}

	return lock
}

// StateMachineOption defines a functional option for configuring a StateMachine.
type StateMachineOption func(*StateMachine) error

// WithStateMachineLogger sets the logger for the StateMachine.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *StateMachine) error {
		sm.logger = logger
		return nil
	}
}

// WithStateMachineClock sets the time source for the StateMachine, mainly for tests.
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *StateMachine) error {
		sm.clock = clock
		return nil
	}
}

// NewStateMachine creates a StateMachine with optional configuration.
func NewStateMachine(
	transactions TransactionStore,
	ledger *InventoryLedger,
	options ...StateMachineOption,
) (StateMachine, error) {

	if transactions == nil {
		return StateMachine{}, ErrNilTransactionStoreSupplied
	}

	if ledger == nil {
		return StateMachine{}, ErrNilInventoryLedgerSupplied
	}

	sm := StateMachine{
		transactions: transactions,
		ledger:       ledger,
		clock:        time.Now,
		locks:        &recordLocks{locks: make(map[uuid.UUID]*sync.Mutex)},
	}

	for _, option := range options {
		if err := option(&sm); err != nil {
			return StateMachine{}, err
		}
	}

	return sm, nil
}

// Approve moves a pending record to approved.
// For issue records one available copy is taken from the ledger first; when
// that fails with ErrOutOfStock the record stays pending and the error is
// surfaced, so an admin can retry, reject, or wait for returns.
func (sm StateMachine) Approve(ctx context.Context, transactionID uuid.UUID) (Transaction, error) {
	lock := sm.locks.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	transaction, err := sm.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return Transaction{}, err
	}

	if err = checkTransition(transaction, transitionApprove); err != nil {
		return Transaction{}, err
	}

	if transaction.Type == TransactionTypeIssue {
		if err = sm.ledger.TryDecrement(ctx, transaction.BookID); err != nil {
			return Transaction{}, err
		}
	}

	transaction.Status = StatusApproved
	transaction.UpdatedAt = sm.clock()

	if err = sm.transactions.SaveTransaction(ctx, transaction); err != nil {
		if transaction.Type == TransactionTypeIssue {
			sm.compensate(ctx, sm.ledger.Increment, transaction)
		}

		return Transaction{}, err
	}

	return transaction, nil
}

// Reject moves a pending record to the terminal rejected status.
// No copy counts are touched.
func (sm StateMachine) Reject(ctx context.Context, transactionID uuid.UUID) (Transaction, error) {
	lock := sm.locks.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	transaction, err := sm.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return Transaction{}, err
	}

	if err = checkTransition(transaction, transitionReject); err != nil {
		return Transaction{}, err
	}

	transaction.Status = StatusRejected
	transaction.UpdatedAt = sm.clock()

	if err = sm.transactions.SaveTransaction(ctx, transaction); err != nil {
		return Transaction{}, err
	}

	return transaction, nil
}

// Complete moves an approved return record to the terminal completed status,
// gives the copy back to the ledger, and closes the originating issue record
// so it is no longer eligible for another return.
//
// The open issue record is the proof that a copy is actually out with this
// user. Without one the completion fails with ErrInvalidTransition: a second
// approved return for the same lending must not put a copy on the shelf that
// another borrower still holds.
func (sm StateMachine) Complete(ctx context.Context, transactionID uuid.UUID) (Transaction, error) {
	lock := sm.locks.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	transaction, err := sm.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return Transaction{}, err
	}

	if err = checkTransition(transaction, transitionComplete); err != nil {
		return Transaction{}, err
	}

	issue, err := sm.transactions.FindOpenIssue(ctx, transaction.BookID, transaction.UserID)
	if errors.Is(err, ErrNotFound) {
		return Transaction{}, ErrInvalidTransition
	}

	if err != nil {
		return Transaction{}, err
	}

	if err = sm.ledger.Increment(ctx, transaction.BookID); err != nil {
		return Transaction{}, err
	}

	now := sm.clock()

	issue.ClosedAt = now
	issue.UpdatedAt = now

	if err = sm.transactions.SaveTransaction(ctx, issue); err != nil {
		sm.compensate(ctx, sm.ledger.TryDecrement, transaction)
		return Transaction{}, err
	}

	transaction.Status = StatusCompleted
	transaction.UpdatedAt = now

	if err = sm.transactions.SaveTransaction(ctx, transaction); err != nil {
		sm.compensate(ctx, sm.ledger.TryDecrement, transaction)
		return Transaction{}, err
	}

	return transaction, nil
}

// compensate undoes a ledger mutation after a storage failure, best effort.
func (sm StateMachine) compensate(
	ctx context.Context,
	undo func(context.Context, uuid.UUID) error,
	transaction Transaction,
) {

	if undoErr := undo(ctx, transaction.BookID); undoErr != nil && sm.logger != nil {
		sm.logger.Error(logMsgCompensatingLedgerFailed,
			logAttrTransactionID, transaction.ID.String(),
			logAttrBookID, transaction.BookID.String(),
			logAttrError, undoErr.Error())
	}
}
