package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/observability"
	"github.com/tobiodua/bankcore/internal/store"
)

// Coordinator executes transfers: a debit posting on the source account, a
// credit posting on the destination, and the transfer row linking them, all
// committed as one atomic unit. No intermediate state is ever observable:
// a failure anywhere leaves both balances exactly as before the call.
type Coordinator struct {
	store store.Store
}

// NewCoordinator creates a transfer coordinator over the given store.
func NewCoordinator(st store.Store) *Coordinator {
	return &Coordinator{store: st}
}

// Transfer moves amountKobo from the source account to the destination.
// Debit-side failures (insufficient funds, unknown source) surface as-is
// with nothing applied; a failure after the debit leg rolls the whole unit
// back and surfaces domain.ErrTransferIncomplete.
func (c *Coordinator) Transfer(ctx context.Context, fromID, toID uuid.UUID, amountKobo int64, senderName, beneficiaryName string) (*domain.Transfer, error) {
	if fromID == toID {
		return nil, domain.ErrSameAccount
	}
	if amountKobo <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	debit := &domain.Transaction{
		ID:         uuid.New(),
		AccountID:  fromID,
		Type:       domain.TxTransfer,
		Direction:  domain.DirectionDebit,
		Status:     domain.StatusPending,
		AmountKobo: amountKobo,
		Reference:  fmt.Sprintf("transfer to %s", beneficiaryName),
	}
	credit := &domain.Transaction{
		ID:         uuid.New(),
		AccountID:  toID,
		Type:       domain.TxTransfer,
		Direction:  domain.DirectionCredit,
		Status:     domain.StatusPending,
		AmountKobo: amountKobo,
		Reference:  fmt.Sprintf("transfer from %s", senderName),
	}
	transfer := &domain.Transfer{
		ID:                  uuid.New(),
		DebitTransactionID:  debit.ID,
		CreditTransactionID: credit.ID,
		FromAccountID:       fromID,
		ToAccountID:         toID,
		AmountKobo:          amountKobo,
		SenderName:          senderName,
		BeneficiaryName:     beneficiaryName,
	}

	debitApplied := false
	err := c.store.RunInTx(ctx, func(tx store.Tx) error {
		debitApplied = false
		if err := tx.LockAccounts(ctx, fromID, toID); err != nil {
			return err
		}

		// Debit leg: its failures surface unchanged.
		if err := tx.CreateTransaction(ctx, debit); err != nil {
			return err
		}
		if _, err := adjustBalance(ctx, tx, fromID, -amountKobo); err != nil {
			return err
		}
		if err := tx.SetTransactionStatus(ctx, debit.ID, domain.StatusCompleted); err != nil {
			return err
		}
		debitApplied = true

		// Credit leg and transfer row: any failure here means a debit
		// without its matching credit, so the unit rolls back and reports
		// TransferIncomplete.
		if err := tx.CreateTransaction(ctx, credit); err != nil {
			return fmt.Errorf("%w: credit leg: %v", domain.ErrTransferIncomplete, err)
		}
		if _, err := adjustBalance(ctx, tx, toID, amountKobo); err != nil {
			return fmt.Errorf("%w: credit leg: %v", domain.ErrTransferIncomplete, err)
		}
		if err := tx.SetTransactionStatus(ctx, credit.ID, domain.StatusCompleted); err != nil {
			return fmt.Errorf("%w: credit leg: %v", domain.ErrTransferIncomplete, err)
		}
		if err := tx.CreateTransfer(ctx, transfer); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransferIncomplete, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			recordFailedPostings(ctx, c.store, debit)
		} else if errors.Is(err, domain.ErrTransferIncomplete) && debitApplied {
			recordFailedPostings(ctx, c.store, debit, credit)
		}
		if errors.Is(err, domain.ErrContention) {
			observability.IncrementContention()
		}
		observability.IncrementTransfer("failed")
		return nil, err
	}

	debit.Status = domain.StatusCompleted
	credit.Status = domain.StatusCompleted
	observability.IncrementTransfer("completed")
	return transfer, nil
}

// Get returns a transfer or domain.ErrNotFound.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return c.store.GetTransfer(ctx, id)
}
