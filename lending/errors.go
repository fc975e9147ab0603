package lending

import (
	"errors"
)

// Workflow failures, surfaced to callers as typed errors.
// All of them leave the transaction record and the copy counters unchanged.
var ErrUnauthenticated = errors.New("caller could not be authenticated")
var ErrForbidden = errors.New("caller is not allowed to perform this operation")
var ErrNotFound = errors.New("record not found")
var ErrBookUnavailable = errors.New("book is not available for lending")
var ErrOutOfStock = errors.New("no copies of this book are currently available")
var ErrOverCapacity = errors.New("available copies would exceed total copies")
var ErrInvalidTransition = errors.New("current status does not allow this transition")

// Validation failures for transaction creation.
var ErrValidation = errors.New("transaction record is not valid")
var ErrMissingBookReference = errors.New("book reference is mandatory")
var ErrMissingUserReference = errors.New("user reference is mandatory")

// Construction failures.
var ErrNilAuthorizationGateSupplied = errors.New("nil authorization gate supplied")
var ErrNilBookStoreSupplied = errors.New("nil book store supplied")
var ErrNilTransactionStoreSupplied = errors.New("nil transaction store supplied")
var ErrNilInventoryLedgerSupplied = errors.New("nil inventory ledger supplied")
var ErrNilDatabaseConnection = errors.New("nil database connection supplied")
var ErrEmptyTableNameSupplied = errors.New("empty table name supplied")

// Unexpected storage failures, surfaced as generic fatal errors.
// This core performs no automatic retry of storage operations.
var ErrBuildingQueryFailed = errors.New("building database query failed")
var ErrQueryingStoreFailed = errors.New("querying the store failed")
var ErrScanningDBRowFailed = errors.New("scanning database row failed")
var ErrExecutingStatementFailed = errors.New("executing database statement failed")
var ErrGettingRowsAffectedFailed = errors.New("getting rows affected count failed")
