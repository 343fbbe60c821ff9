package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType is the closed set of posting kinds. The stored amount is
// always positive; the sign applied to the balance comes from the type's
// direction.
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxTransfer   TransactionType = "transfer"
	TxPayment    TransactionType = "payment"
	TxCredit     TransactionType = "credit"
	TxForeign    TransactionType = "foreign"
)

// ParseTransactionType maps a string onto the closed set. The legacy
// misspelling "withdrawl" and short form "withdraw" normalize to the
// canonical "withdrawal".
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return TxDeposit, nil
	case "withdrawal", "withdrawl", "withdraw":
		return TxWithdrawal, nil
	case "transfer":
		return TxTransfer, nil
	case "payment":
		return TxPayment, nil
	case "credit":
		return TxCredit, nil
	case "foreign":
		return TxForeign, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
}

// Direction is the sign a posting applies to its account balance.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// ParseDirection maps a string onto debit/credit.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionDebit:
		return DirectionDebit, nil
	case DirectionCredit:
		return DirectionCredit, nil
	default:
		return "", fmt.Errorf("invalid direction %q", s)
	}
}

// IntrinsicDirection returns the direction implied by the type. Foreign
// postings and transfer legs carry no intrinsic direction: foreign flows in
// either direction, and transfer legs are signed per role by the
// coordinator, so ok is false for both.
func (t TransactionType) IntrinsicDirection() (d Direction, ok bool) {
	switch t {
	case TxDeposit, TxCredit:
		return DirectionCredit, true
	case TxWithdrawal, TxPayment:
		return DirectionDebit, true
	default:
		return "", false
	}
}

// TransactionStatus is the posting lifecycle. A posting is created pending
// and transitions exactly once to completed or failed; after that it is an
// immutable ledger fact.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is a single signed monetary entry against one account.
type Transaction struct {
	ID         uuid.UUID         `json:"id"`
	AccountID  uuid.UUID         `json:"account_id"`
	Type       TransactionType   `json:"type"`
	Direction  Direction         `json:"direction"`
	Status     TransactionStatus `json:"status"`
	AmountKobo int64             `json:"amount_kobo"`
	Reference  string            `json:"reference"`
	CardID     *uuid.UUID        `json:"card_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SignedAmount returns the balance delta this posting applies when
// completed.
func (t Transaction) SignedAmount() int64 {
	if t.Direction == DirectionDebit {
		return -t.AmountKobo
	}
	return t.AmountKobo
}
