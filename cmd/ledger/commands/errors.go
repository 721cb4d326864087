package commands

import (
	"errors"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// Exit codes
const (
	exitFailure      = 1
	exitRejected     = 2
	exitNotFound     = 3
	exitUnauthorized = 4
	exitStorage      = 5
)

// describeError returns the message shown for a failed command.
// Domain errors already read as sentences; storage failures are summarised.
func describeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrLedgerInconsistent):
		return "ledger inconsistent: a transfer was debited but could not be credited or reversed; check the logs"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, domain.ErrPersistence):
		return "storage failure: " + err.Error()
	default:
		return err.Error()
	}
}

// exitCode maps an error onto the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidCredentials):
		return exitUnauthorized
	case errors.Is(err, domain.ErrLedgerInconsistent), errors.Is(err, domain.ErrPersistence):
		return exitStorage
	case errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrNotFound):
		return exitNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMinimumDeposit),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrDuplicateCustomer),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicateAccountKind),
		errors.Is(err, domain.ErrDuplicateAccountNumber),
		errors.Is(err, domain.ErrLastAccount),
		errors.Is(err, domain.ErrNonZeroBalance),
		errors.Is(err, errAborted),
		domain.IsPolicyError(err):
		return exitRejected
	default:
		return exitFailure
	}
}
