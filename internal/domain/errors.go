package domain

import "errors"

// Validation errors
var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidAmount   = errors.New("amount must be positive with at most two decimal places")
	ErrMinimumDeposit  = errors.New("initial deposit is below the minimum for this account kind")
	ErrUnknownKind     = errors.New("unknown kind")
	ErrMalformedRecord = errors.New("malformed record")
)

// Policy errors
var (
	ErrWithdrawalNotAllowed   = errors.New("withdrawals are not allowed from this account")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrMinimumBalance         = errors.New("withdrawal would breach the minimum balance")
	ErrTransferFromSavings    = errors.New("transfers from a savings account are not allowed")
	ErrSameAccount            = errors.New("source and destination accounts are the same")
	ErrDuplicateAccountKind   = errors.New("customer already holds an account of this kind")
	ErrDuplicateAccountNumber = errors.New("account number already exists")
	ErrDuplicateCustomer      = errors.New("customer ID already exists")
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrLastAccount            = errors.New("cannot close the customer's last account")
	ErrNonZeroBalance         = errors.New("account balance must be zero to close it")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

// Not-found errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAccountNotFound  = errors.New("account not found")
)

// Persistence errors
var (
	ErrPersistence = errors.New("persistence failure")
	// ErrLedgerInconsistent means a transfer debited the source account and neither the
	// destination credit nor the compensating credit could be recorded.
	ErrLedgerInconsistent = errors.New("ledger inconsistent: transfer rollback failed")
)
