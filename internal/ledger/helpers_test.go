package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/store"
	"github.com/tobiodua/bankcore/internal/store/memory"
)

type testEnv struct {
	store       *memory.Store
	directory   *Directory
	registry    *Registry
	ledger      *Ledger
	coordinator *Coordinator
	cards       *Cards
	integrity   *Integrity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := memory.New()
	return &testEnv{
		store:       s,
		directory:   NewDirectory(s),
		registry:    NewRegistry(s),
		ledger:      NewLedger(s),
		coordinator: NewCoordinator(s),
		cards:       NewCards(s),
		integrity:   NewIntegrity(s),
	}
}

var accountSeq int

func (e *testEnv) newCustomer(t *testing.T) *domain.Customer {
	t.Helper()
	id := uuid.NewString()[:8]
	c, err := e.directory.Create(context.Background(), CreateCustomerInput{
		FirstName: "Ada",
		Surname:   "Obi",
		BirthDate: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Email:     fmt.Sprintf("ada+%s@example.com", id),
		Phone:     "0801" + id[:6],
		Address:   "5 Broad Street, Lagos",
	})
	require.NoError(t, err)
	return c
}

// newAccount opens an account and, when openingKobo > 0, funds it with a
// deposit so the balance matches the posting sum.
func (e *testEnv) newAccount(t *testing.T, openingKobo int64) *domain.Account {
	t.Helper()
	c := e.newCustomer(t)
	accountSeq++
	number := fmt.Sprintf("%010d", accountSeq)
	a, err := e.registry.Open(context.Background(), c.ID, "savings", number)
	require.NoError(t, err)

	if openingKobo > 0 {
		_, err := e.ledger.Post(context.Background(), PostingRequest{
			AccountID:  a.ID,
			Type:       "deposit",
			AmountKobo: openingKobo,
			Reference:  "opening balance",
		})
		require.NoError(t, err)
	}
	fresh, err := e.registry.Balance(context.Background(), a.ID)
	require.NoError(t, err)
	return fresh
}

// faultStore wraps a store and fails CreateTransfer inside the scope,
// simulating a crash after the debit leg applied.
type faultStore struct {
	store.Store
}

func (f *faultStore) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.RunInTx(ctx, func(tx store.Tx) error {
		return fn(&faultTx{Tx: tx})
	})
}

type faultTx struct {
	store.Tx
}

func (f *faultTx) CreateTransfer(ctx context.Context, t *domain.Transfer) error {
	return fmt.Errorf("simulated transfer row failure")
}
