package lending

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	TransactionTypeIssue  TransactionType = "issue"
	TransactionTypeReturn TransactionType = "return"
)

const (
	StatusPending   TransactionStatus = "pending"
	StatusApproved  TransactionStatus = "approved"
	StatusRejected  TransactionStatus = "rejected"
	StatusCompleted TransactionStatus = "completed"
)

// TransactionType distinguishes a borrowing action from a returning action.
type TransactionType string

// TransactionStatus is the lifecycle state of a Transaction.
type TransactionStatus string

// Transactions is an alias type for a slice of Transaction.
type Transactions = []Transaction

// Transaction is the persisted record of one borrowing or returning action.
//
// While its properties are exported, it should only be constructed with the
// supplied factory methods:
//   - BuildIssueTransaction
//   - BuildReturnTransaction
type Transaction struct {
	ID        uuid.UUID         `json:"id"`
	BookID    uuid.UUID         `json:"bookId"`
	UserID    uuid.UUID         `json:"userId"`
	Type      TransactionType   `json:"transactionType"`
	Status    TransactionStatus `json:"status"`
	ClosedAt  time.Time         `json:"closedAt"` // zero while an approved issue has no completed return
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// BuildIssueTransaction is a factory method for a pending issue Transaction.
// Returns an error if the book or user reference is missing.
func BuildIssueTransaction(bookID uuid.UUID, userID uuid.UUID, now time.Time) (Transaction, error) {
	return buildTransaction(TransactionTypeIssue, bookID, userID, now)
}

// BuildReturnTransaction is a factory method for a pending return Transaction.
// Returns an error if the book or user reference is missing.
func BuildReturnTransaction(bookID uuid.UUID, userID uuid.UUID, now time.Time) (Transaction, error) {
	return buildTransaction(TransactionTypeReturn, bookID, userID, now)
}

func buildTransaction(
	transactionType TransactionType,
	bookID uuid.UUID,
	userID uuid.UUID,
	now time.Time,
) (Transaction, error) {

	if bookID == uuid.Nil {
		return Transaction{}, errors.Join(ErrValidation, ErrMissingBookReference)
	}

	if userID == uuid.Nil {
		return Transaction{}, errors.Join(ErrValidation, ErrMissingUserReference)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Transaction{}, errors.Join(ErrValidation, err)
	}

	return Transaction{
		ID:        id,
		BookID:    bookID,
		UserID:    userID,
		Type:      transactionType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsTerminal reports whether no further transition is permitted from the
// record's current status. Approved issue records are terminal for the state
// machine as well: the lending stays active until a matching return record
// runs through its own lifecycle.
func (t Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusRejected, StatusCompleted:
		return true
	case StatusApproved:
		return t.Type == TransactionTypeIssue
	default:
		return false
	}
}

// IsOpenIssue reports whether this record represents a lending that is still
// active, i.e. an approved issue without a completed return.
func (t Transaction) IsOpenIssue() bool {
	return t.Type == TransactionTypeIssue &&
		t.Status == StatusApproved &&
		t.ClosedAt.IsZero()
}
