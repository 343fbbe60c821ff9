package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/store"
)

func seedAccount(t *testing.T, s *Store, number string, balanceKobo int64) *domain.Account {
	t.Helper()
	c := &domain.Customer{
		ID:        uuid.New(),
		FirstName: "Ada",
		Surname:   "Obi",
		BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Email:     fmt.Sprintf("ada+%s@example.com", number),
		Phone:     "0801" + number[:6],
	}
	require.NoError(t, s.CreateCustomer(context.Background(), c))

	a := &domain.Account{
		ID:          uuid.New(),
		CustomerID:  c.ID,
		Type:        domain.AccountSavings,
		Number:      number,
		BalanceKobo: balanceKobo,
	}
	require.NoError(t, s.CreateAccount(context.Background(), a))
	return a
}

func TestCreateCustomer_DuplicateIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := &domain.Customer{ID: uuid.New(), Email: "ada@example.com", Phone: "08011111111"}
	require.NoError(t, s.CreateCustomer(ctx, first))

	sameEmail := &domain.Customer{ID: uuid.New(), Email: "ada@example.com", Phone: "08022222222"}
	assert.ErrorIs(t, s.CreateCustomer(ctx, sameEmail), domain.ErrDuplicateIdentity)

	samePhone := &domain.Customer{ID: uuid.New(), Email: "obi@example.com", Phone: "08011111111"}
	assert.ErrorIs(t, s.CreateCustomer(ctx, samePhone), domain.ErrDuplicateIdentity)
}

func TestCreateAccount_DuplicateNumber(t *testing.T) {
	s := New()
	seedAccount(t, s, "0123456789", 0)

	dup := &domain.Account{ID: uuid.New(), CustomerID: uuid.New(), Type: domain.AccountCurrent, Number: "0123456789"}
	assert.ErrorIs(t, s.CreateAccount(context.Background(), dup), domain.ErrDuplicateAccountNumber)
}

func TestRunInTx_RollbackDiscardsStagedState(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "0123456789", 10000)

	posting := &domain.Transaction{
		ID:         uuid.New(),
		AccountID:  a.ID,
		Type:       domain.TxWithdrawal,
		Direction:  domain.DirectionDebit,
		Status:     domain.StatusPending,
		AmountKobo: 4000,
	}
	boom := fmt.Errorf("boom")
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.LockAccounts(ctx, a.ID))
		require.NoError(t, tx.CreateTransaction(ctx, posting))
		require.NoError(t, tx.UpdateAccountBalance(ctx, a.ID, 6000))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.BalanceKobo)

	_, err = s.GetTransaction(ctx, posting.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunInTx_CommitIsAtomicallyVisible(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "0123456789", 10000)

	posting := &domain.Transaction{
		ID:         uuid.New(),
		AccountID:  a.ID,
		Type:       domain.TxDeposit,
		Direction:  domain.DirectionCredit,
		Status:     domain.StatusPending,
		AmountKobo: 2500,
	}
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockAccounts(ctx, a.ID); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, posting); err != nil {
			return err
		}
		if err := tx.UpdateAccountBalance(ctx, a.ID, 12500); err != nil {
			return err
		}
		return tx.SetTransactionStatus(ctx, posting.ID, domain.StatusCompleted)
	})
	require.NoError(t, err)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12500), got.BalanceKobo)

	stored, err := s.GetTransaction(ctx, posting.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestLockAccounts_UnknownAccount(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.LockAccounts(ctx, uuid.New())
	})
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)
}

func TestLockAccounts_ContentionAfterRetryBudget(t *testing.T) {
	s := New(WithLockRetry(3, time.Millisecond))
	ctx := context.Background()
	a := seedAccount(t, s, "0123456789", 0)

	held := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.RunInTx(ctx, func(tx store.Tx) error {
			if err := tx.LockAccounts(ctx, a.ID); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()

	<-held
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.LockAccounts(ctx, a.ID)
	})
	assert.ErrorIs(t, err, domain.ErrContention)

	close(release)
	wg.Wait()
}

func TestUpdateAccountBalance_RequiresLock(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "0123456789", 0)

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.UpdateAccountBalance(ctx, a.ID, 100)
	})
	assert.Error(t, err)
}

func TestSetTransactionStatus_CompletedIsImmutable(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "0123456789", 0)

	posting := &domain.Transaction{
		ID:         uuid.New(),
		AccountID:  a.ID,
		Type:       domain.TxDeposit,
		Direction:  domain.DirectionCredit,
		Status:     domain.StatusPending,
		AmountKobo: 100,
	}
	require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateTransaction(ctx, posting); err != nil {
			return err
		}
		return tx.SetTransactionStatus(ctx, posting.ID, domain.StatusCompleted)
	}))

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.SetTransactionStatus(ctx, posting.ID, domain.StatusFailed)
	})
	assert.Error(t, err)
}

func TestCreateTransfer_LegUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	from := seedAccount(t, s, "0123456789", 10000)
	to := seedAccount(t, s, "9876543210", 0)

	debit := &domain.Transaction{ID: uuid.New(), AccountID: from.ID, Type: domain.TxTransfer, Direction: domain.DirectionDebit, Status: domain.StatusCompleted, AmountKobo: 100}
	credit := &domain.Transaction{ID: uuid.New(), AccountID: to.ID, Type: domain.TxTransfer, Direction: domain.DirectionCredit, Status: domain.StatusCompleted, AmountKobo: 100}
	transfer := &domain.Transfer{
		ID:                  uuid.New(),
		DebitTransactionID:  debit.ID,
		CreditTransactionID: credit.ID,
		FromAccountID:       from.ID,
		ToAccountID:         to.ID,
		AmountKobo:          100,
	}
	require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateTransaction(ctx, debit); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, credit); err != nil {
			return err
		}
		return tx.CreateTransfer(ctx, transfer)
	}))

	reuse := &domain.Transfer{
		ID:                  uuid.New(),
		DebitTransactionID:  debit.ID,
		CreditTransactionID: uuid.New(),
		FromAccountID:       from.ID,
		ToAccountID:         to.ID,
		AmountKobo:          100,
	}
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.CreateTransfer(ctx, reuse)
	})
	assert.Error(t, err)
}

func TestListAccountTransactions_NewestFirstPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "0123456789", 0)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		posting := &domain.Transaction{
			ID:         uuid.New(),
			AccountID:  a.ID,
			Type:       domain.TxDeposit,
			Direction:  domain.DirectionCredit,
			Status:     domain.StatusCompleted,
			AmountKobo: int64(100 * (i + 1)),
		}
		require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
			return tx.CreateTransaction(ctx, posting)
		}))
		ids = append(ids, posting.ID)
	}

	page, err := s.ListAccountTransactions(ctx, a.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, err = s.ListAccountTransactions(ctx, a.ID, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
}

func TestDeactivateCard_Idempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "0123456789", 0)

	card := &domain.Card{ID: uuid.New(), AccountID: a.ID, Type: domain.CardVisa, Number: "4111111111111111", Active: true}
	require.NoError(t, s.CreateCard(ctx, card))

	require.NoError(t, s.DeactivateCard(ctx, card.ID))
	require.NoError(t, s.DeactivateCard(ctx, card.ID))

	got, err := s.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}
