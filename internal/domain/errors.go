package domain

import "errors"

// Sentinel errors for the ledger core. Callers classify failures with
// errors.Is; wrapped context never hides the sentinel.
var (
	ErrNotFound = errors.New("not found")

	// ErrValidation marks caller input rejected before any state changed.
	ErrValidation = errors.New("invalid request")

	// Uniqueness violations.
	ErrDuplicateIdentity      = errors.New("email or phone already registered")
	ErrDuplicateAccountNumber = errors.New("account number already in use")
	ErrDuplicateCardNumber    = errors.New("card number already in use")

	// Referenced entity does not exist.
	ErrUnknownCustomer = errors.New("customer does not exist")
	ErrUnknownAccount  = errors.New("account does not exist")

	// Closed-set and format violations.
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidCardType        = errors.New("invalid card type")
	ErrInvalidAccountNumber   = errors.New("account number must be 10 digits")

	// Ledger rule violations.
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrSameAccount        = errors.New("transfer endpoints must differ")
	ErrTransferIncomplete = errors.New("transfer incomplete")
	ErrImmutableField     = errors.New("field is immutable")
	ErrCardInactive       = errors.New("card is inactive")

	// ErrContention reports an exhausted lock retry budget; the operation
	// applied nothing and may be retried.
	ErrContention = errors.New("account contention")
)
