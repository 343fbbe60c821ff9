package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transfer reconciles exactly two postings, a debit on the source account
// and a credit on the destination, created together as one atomic economic
// event. Each posting can be the debit leg of at most one transfer and the
// credit leg of at most one transfer, the legs must sit on distinct
// accounts, and the transfer amount equals both posting amounts exactly.
type Transfer struct {
	ID                  uuid.UUID `json:"id"`
	DebitTransactionID  uuid.UUID `json:"debit_transaction_id"`
	CreditTransactionID uuid.UUID `json:"credit_transaction_id"`
	FromAccountID       uuid.UUID `json:"from_account_id"`
	ToAccountID         uuid.UUID `json:"to_account_id"`
	AmountKobo          int64     `json:"amount_kobo"`
	SenderName          string    `json:"sender_name"`
	BeneficiaryName     string    `json:"beneficiary_name"`
	CreatedAt           time.Time `json:"created_at"`
}
