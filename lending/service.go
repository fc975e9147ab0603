package lending

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	operationRequestBook       = "request_book"
	operationReturnBook        = "return_book"
	operationSetStatus         = "set_status"
	operationCompleteReturn    = "complete_return"
	operationGetTransaction    = "get_transaction"
	operationListTransactions  = "list_transactions"
	operationDeleteTransaction = "delete_transaction"

	metricOperationsTotal = "lending_operations_total"

	metricLabelOperation = "operation"
	metricLabelOutcome   = "outcome"
	outcomeSuccess       = "success"
	outcomeFailure       = "failure"

	logMsgOperationFailed    = "lending operation failed"
	logMsgOperationCompleted = "lending operation completed"
	logAttrOperation         = "operation"
)

var ErrStatusNotSettable = errors.New("status can only be set to approved or rejected")

// LendingService is the facade of the borrowing workflow. It consults the
// authorization gate before every operation, drives the state machine, and
// enforces ordering and ownership rules.
type LendingService struct {
	gate         AuthorizationGate
	transactions TransactionStore
	ledger       *InventoryLedger
	stateMachine StateMachine
	logger       ContextualLogger
	metrics      MetricsCollector
	clock        func() time.Time
}

// ServiceOption defines a functional option for configuring a LendingService.
type ServiceOption func(*LendingService) error

// WithServiceContextualLogger sets the contextual logger for the service.
func WithServiceContextualLogger(logger ContextualLogger) ServiceOption {
	return func(s *LendingService) error {
		s.logger = logger
		return nil
	}
}

// WithServiceMetricsCollector sets the metrics collector for the service.
// The service counts operation outcomes under "lending_operations_total"
// with operation and outcome labels.
func WithServiceMetricsCollector(metrics MetricsCollector) ServiceOption {
	return func(s *LendingService) error {
		s.metrics = metrics
		return nil
	}
}

// WithServiceClock sets the time source for the service, mainly for tests.
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *LendingService) error {
		s.clock = clock
		return nil
	}
}

// NewLendingService creates a LendingService with optional configuration.
// The state machine is constructed internally on the same store and ledger.
func NewLendingService(
	gate AuthorizationGate,
	transactions TransactionStore,
	ledger *InventoryLedger,
	options ...ServiceOption,
) (*LendingService, error) {

	if gate == nil {
		return nil, ErrNilAuthorizationGateSupplied
	}

	if transactions == nil {
		return nil, ErrNilTransactionStoreSupplied
	}

	if ledger == nil {
		return nil, ErrNilInventoryLedgerSupplied
	}

	service := &LendingService{
		gate:         gate,
		transactions: transactions,
		ledger:       ledger,
		clock:        time.Now,
	}

	for _, option := range options {
		if err := option(service); err != nil {
			return nil, err
		}
	}

	stateMachine, err := NewStateMachine(
		transactions,
		ledger,
		WithStateMachineClock(func() time.Time { return service.clock() }),
	)
	if err != nil {
		return nil, err
	}

	service.stateMachine = stateMachine

	return service, nil
}

// RequestBook creates a pending issue record owned by the caller.
// It fails with ErrBookUnavailable for an inactive book, before any record
// is created. Stock is reserved at approval time, not here, so requests can
// queue regardless of the current availability.
func (s *LendingService) RequestBook(
	ctx context.Context,
	credential Credential,
	bookID uuid.UUID,
) (Transaction, error) {

	caller, err := s.authenticate(ctx, credential)
	if err != nil {
		return Transaction{}, s.observe(ctx, operationRequestBook, err)
	}

	active, err := s.ledger.IsActive(ctx, bookID)
	if err != nil {
		return Transaction{}, s.observe(ctx, operationRequestBook, err)
	}

	if !active {
		return Transaction{}, s.observe(ctx, operationRequestBook, ErrBookUnavailable)
	}

	transaction, err := BuildIssueTransaction(bookID, caller.UserID, s.clock())
	if err != nil {
		return Transaction{}, s.observe(ctx, operationRequestBook, err)
	}

	if err = s.transactions.SaveTransaction(ctx, transaction); err != nil {
		return Transaction{}, s.observe(ctx, operationRequestBook, err)
	}

	return transaction, s.observe(ctx, operationRequestBook, nil)
}

// ReturnBook creates a pending return record for the caller.
// It fails with ErrForbidden unless the caller owns a matching approved issue
// record that has not been closed by a completed return yet.
func (s *LendingService) ReturnBook(
	ctx context.Context,
	credential Credential,
	bookID uuid.UUID,
) (Transaction, error) {

	caller, err := s.authenticate(ctx, credential)
	if err != nil {
		return Transaction{}, s.observe(ctx, operationReturnBook, err)
	}

	if _, err = s.transactions.FindOpenIssue(ctx, bookID, caller.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrForbidden
		}

		return Transaction{}, s.observe(ctx, operationReturnBook, err)
	}

	transaction, err := BuildReturnTransaction(bookID, caller.UserID, s.clock())
	if err != nil {
		return Transaction{}, s.observe(ctx, operationReturnBook, err)
	}

	if err = s.transactions.SaveTransaction(ctx, transaction); err != nil {
		return Transaction{}, s.observe(ctx, operationReturnBook, err)
	}

	return transaction, s.observe(ctx, operationReturnBook, nil)
}

// SetStatus approves or rejects a pending record, admin-only.
// ErrOutOfStock and ErrInvalidTransition from the state machine are
// propagated as-is; the record is left unchanged in both cases.
func (s *LendingService) SetStatus(
	ctx context.Context,
	credential Credential,
	transactionID uuid.UUID,
	status TransactionStatus,
) (Transaction, error) {

	caller, err := s.authenticate(ctx, credential)
	if err != nil {
		return Transaction{}, s.observe(ctx, operationSetStatus, err)
	}

	if err = mayAdminister(caller); err != nil {
		return Transaction{}, s.observe(ctx, operationSetStatus, err)
	}

	var transaction Transaction

	switch status {
	case StatusApproved:
		transaction, err = s.stateMachine.Approve(ctx, transactionID)

	case StatusRejected:
		transaction, err = s.stateMachine.Reject(ctx, transactionID)

	default:
		err = errors.Join(ErrValidation, ErrStatusNotSettable)
	}

	if err != nil {
		return Transaction{}, s.observe(ctx, operationSetStatus, err)
	}

	return transaction, s.observe(ctx, operationSetStatus, nil)
}

// CompleteReturn completes an approved return record, admin-only.
func (s *LendingService) CompleteReturn(
	ctx context.Context,
	credential Credential,
	transactionID uuid.UUID,
) (Transaction, error) {

	caller, err := s.authenticate(ctx, credential)
	if err != nil {
		return Transaction{}, s.observe(ctx, operationCompleteReturn, err)
	}

	if err = mayAdminister(caller); err != nil {
		return Transaction{}, s.observe(ctx, operationCompleteReturn, err)
	}

	transaction, err := s.stateMachine.Complete(ctx, transactionID)
	if err != nil {
		return Transaction{}, s.observe(ctx, operationCompleteReturn, err)
	}

	return transaction, s.observe(ctx, operationCompleteReturn, nil)
}

// GetTransaction fetches one record. Admins may fetch any record, other
// callers only their own.
func (s *LendingService) GetTransaction(
	ctx context.Context,
	credential Credential,
	transactionID uuid.UUID,
) (Transaction, error) {

	caller, err := s.authenticate(ctx, credential)
	if err != nil {
		return Transaction{}, s.observe(ctx, operationGetTransaction, err)
	}

	transaction, err := s.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return Transaction{}, s.observe(ctx, operationGetTransaction, err)
	}

	if err = mayReadTransaction(caller, transaction); err != nil {
		return Transaction{}, s.observe(ctx, operationGetTransaction, err)
	}

	return transaction, s.observe(ctx, operationGetTransaction, nil)
}

// ListTransactions lists all records for admins and the caller's own records
// for everybody else, in insertion order.
func (s *LendingService) ListTransactions(
	ctx context.Context,
	credential Credential,
) (Transactions, error) {

	caller, err := s.authenticate(ctx, credential)
	if err != nil {
		return nil, s.observe(ctx, operationListTransactions, err)
	}

	var transactions Transactions

	if caller.IsAdmin() {
		transactions, err = s.transactions.ListTransactions(ctx)
	} else {
		transactions, err = s.transactions.ListTransactionsForUser(ctx, caller.UserID)
	}

	if err != nil {
		return nil, s.observe(ctx, operationListTransactions, err)
	}

	return transactions, s.observe(ctx, operationListTransactions, nil)
}

// DeleteTransaction deletes one record at any status, admin-only.
// Deletion never touches the ledger: stock reserved by an approved issue
// record is only released through the return/complete flow.
func (s *LendingService) DeleteTransaction(
	ctx context.Context,
	credential Credential,
	transactionID uuid.UUID,
) error {

	caller, err := s.authenticate(ctx, credential)
	if err != nil {
		return s.observe(ctx, operationDeleteTransaction, err)
	}

	if err = mayAdminister(caller); err != nil {
		return s.observe(ctx, operationDeleteTransaction, err)
	}

	if err = s.transactions.DeleteTransaction(ctx, transactionID); err != nil {
		return s.observe(ctx, operationDeleteTransaction, err)
	}

	return s.observe(ctx, operationDeleteTransaction, nil)
}

// authenticate resolves the caller through the authorization gate.
func (s *LendingService) authenticate(ctx context.Context, credential Credential) (Caller, error) {
	caller, err := s.gate.Authenticate(ctx, credential)
	if err != nil {
		return Caller{}, errors.Join(ErrUnauthenticated, err)
	}

	return caller, nil
}

// observe records the outcome of an operation on the configured collector and
// logger, and passes the error through unchanged.
func (s *LendingService) observe(ctx context.Context, operation string, err error) error {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}

	if s.metrics != nil {
		s.metrics.IncrementCounter(metricOperationsTotal, map[string]string{
			metricLabelOperation: operation,
			metricLabelOutcome:   outcome,
		})
	}

	if s.logger != nil {
		if err != nil {
			s.logger.InfoContext(ctx, logMsgOperationFailed,
				logAttrOperation, operation,
				logAttrError, err.Error())
		} else {
			s.logger.DebugContext(ctx, logMsgOperationCompleted,
				logAttrOperation, operation)
		}
	}

	return err
}
