package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobiodua/bankcore/internal/db"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/store"
)

func init() {
	_ = godotenv.Load("../../../.env")
}

// setupTestStore connects to the database named by DATABASE_URL and applies
// the schema. Tests are skipped when no database is available.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	pool, err := db.Connect(context.Background(), connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.Migrate(context.Background()))

	_, err = pool.Exec(context.Background(), "TRUNCATE TABLE transfers, cards, transactions, accounts, customers CASCADE")
	require.NoError(t, err)
	return s
}

func seedTestAccount(t *testing.T, s *Store, number string, balanceKobo int64) *domain.Account {
	t.Helper()
	c := &domain.Customer{
		ID:        uuid.New(),
		FirstName: "Ada",
		Surname:   "Obi",
		BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Email:     fmt.Sprintf("ada+%s@example.com", number),
		Phone:     "0801" + number[:6],
		Address:   "5 Broad Street, Lagos",
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

func TestPostgresUniqueConstraints(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	a := seedTestAccount(t, s, "0123456789", 0)

	dupEmail := &domain.Customer{
		ID:        uuid.New(),
		FirstName: "Ngozi",
		Surname:   "Eze",
		BirthDate: time.Date(1985, 2, 2, 0, 0, 0, 0, time.UTC),
		Email:     "ada+0123456789@example.com",
		Phone:     "08099999999",
	}
	assert.ErrorIs(t, s.CreateCustomer(ctx, dupEmail), domain.ErrDuplicateIdentity)

	dupNumber := &domain.Account{ID: uuid.New(), CustomerID: a.CustomerID, Type: domain.AccountCurrent, Number: "0123456789"}
	assert.ErrorIs(t, s.CreateAccount(ctx, dupNumber), domain.ErrDuplicateAccountNumber)
}

func TestPostgresTxRollback(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	a := seedTestAccount(t, s, "0123456789", 10000)

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
		if err := tx.LockAccounts(ctx, a.ID); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, posting); err != nil {
			return err
		}
		if err := tx.UpdateAccountBalance(ctx, a.ID, 6000); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.BalanceKobo)

	_, err = s.GetTransaction(ctx, posting.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresLockUnknownAccount(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.LockAccounts(ctx, uuid.New())
	})
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)
}

func TestPostgresTransferLegUniqueness(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	from := seedTestAccount(t, s, "0123456789", 10000)
	to := seedTestAccount(t, s, "9876543210", 0)

	debit := &domain.Transaction{ID: uuid.New(), AccountID: from.ID, Type: domain.TxTransfer, Direction: domain.DirectionDebit, Status: domain.StatusCompleted, AmountKobo: 100}
	credit := &domain.Transaction{ID: uuid.New(), AccountID: to.ID, Type: domain.TxTransfer, Direction: domain.DirectionCredit, Status: domain.StatusCompleted, AmountKobo: 100}
	transfer := &domain.Transfer{
		ID:                  uuid.New(),
		DebitTransactionID:  debit.ID,
		CreditTransactionID: credit.ID,
		FromAccountID:       from.ID,
		ToAccountID:         to.ID,
		AmountKobo:          100,
		SenderName:          "Ada",
		BeneficiaryName:     "Ngozi",
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
		CreditTransactionID: credit.ID,
		FromAccountID:       from.ID,
		ToAccountID:         to.ID,
		AmountKobo:          100,
		SenderName:          "Ada",
		BeneficiaryName:     "Ngozi",
	}
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.CreateTransfer(ctx, reuse)
	})
	assert.Error(t, err)
}
