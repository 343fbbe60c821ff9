package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountType is the closed set of account products.
type AccountType string

const (
	AccountSavings     AccountType = "savings"
	AccountCurrent     AccountType = "current"
	AccountFixed       AccountType = "fixed"
	AccountDomiciliary AccountType = "domiciliary"
	AccountSalary      AccountType = "salary"
)

// ParseAccountType maps a caller-supplied string onto the closed set.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(strings.ToLower(strings.TrimSpace(s))) {
	case AccountSavings:
		return AccountSavings, nil
	case AccountCurrent:
		return AccountCurrent, nil
	case AccountFixed:
		return AccountFixed, nil
	case AccountDomiciliary:
		return AccountDomiciliary, nil
	case AccountSalary:
		return AccountSalary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
	}
}

// AccountNumberLength is the NUBAN-style fixed account number length.
const AccountNumberLength = 10

// ValidateAccountNumber checks the fixed-length all-digits format.
func ValidateAccountNumber(number string) error {
	if len(number) != AccountNumberLength {
		return fmt.Errorf("%w: %q", ErrInvalidAccountNumber, number)
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidAccountNumber, number)
		}
	}
	return nil
}

// Account belongs to exactly one customer. BalanceKobo is mutated only by
// the posting ledger inside a transactional scope and always equals the
// signed sum of completed postings against the account.
type Account struct {
	ID          uuid.UUID   `json:"id"`
	CustomerID  uuid.UUID   `json:"customer_id"`
	Type        AccountType `json:"type"`
	Number      string      `json:"number"`
	BalanceKobo int64       `json:"balance_kobo"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Balance returns the balance as a display string.
func (a Account) Balance() string {
	return FormatAmount(a.BalanceKobo)
}
