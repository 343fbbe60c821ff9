package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobiodua/bankcore/internal/domain"
)

func TestPost_DepositCreditsBalance(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 0)
	ctx := context.Background()

	posting, err := env.ledger.Post(ctx, PostingRequest{
		AccountID:  a.ID,
		Type:       "deposit",
		AmountKobo: 50000,
		Reference:  "cash deposit",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, posting.Status)
	assert.Equal(t, domain.DirectionCredit, posting.Direction)

	got, err := env.registry.Balance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got.BalanceKobo)
}

func TestPost_WithdrawalAliasDebitsBalance(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 50000)
	ctx := context.Background()

	posting, err := env.ledger.Post(ctx, PostingRequest{
		AccountID:  a.ID,
		Type:       "withdrawl",
		AmountKobo: 20000,
		Reference:  "atm",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxWithdrawal, posting.Type)
	assert.Equal(t, domain.DirectionDebit, posting.Direction)

	got, err := env.registry.Balance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), got.BalanceKobo)
}

func TestPost_InsufficientFundsRollsBackAndRecordsFailedRow(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 10000)
	ctx := context.Background()

	_, err := env.ledger.Post(ctx, PostingRequest{
		AccountID:  a.ID,
		Type:       "withdrawal",
		AmountKobo: 15000,
		Reference:  "atm",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	got, err := env.registry.Balance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.BalanceKobo)

	// The rejected posting survives as an immutable failed row.
	page, err := env.registry.Statement(ctx, a.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, domain.StatusFailed, page[0].Status)
	assert.Equal(t, int64(15000), page[0].AmountKobo)
}

func TestPost_ZeroAndNegativeAmountsRejected(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 0)
	ctx := context.Background()

	_, err := env.ledger.Post(ctx, PostingRequest{AccountID: a.ID, Type: "deposit", AmountKobo: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.ledger.Post(ctx, PostingRequest{AccountID: a.ID, Type: "deposit", AmountKobo: -100})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestPost_UnknownType(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 0)

	_, err := env.ledger.Post(context.Background(), PostingRequest{
		AccountID:  a.ID,
		Type:       "chargeback",
		AmountKobo: 100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)
}

func TestPost_ForeignNeedsExplicitDirection(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 10000)
	ctx := context.Background()

	_, err := env.ledger.Post(ctx, PostingRequest{
		AccountID:  a.ID,
		Type:       "foreign",
		AmountKobo: 5000,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)

	posting, err := env.ledger.Post(ctx, PostingRequest{
		AccountID:  a.ID,
		Type:       "foreign",
		AmountKobo: 5000,
		Direction:  "debit",
		Reference:  "fx outbound",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionDebit, posting.Direction)

	got, err := env.registry.Balance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.BalanceKobo)
}

func TestPost_CardAuthorization(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 10000)
	ctx := context.Background()

	card, err := env.cards.Issue(ctx, a.ID, "visa", "4111111111111111", time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	posting, err := env.ledger.Post(ctx, PostingRequest{
		AccountID:  a.ID,
		Type:       "payment",
		AmountKobo: 4000,
		Reference:  "pos purchase",
		CardID:     &card.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, posting.CardID)
	assert.Equal(t, card.ID, *posting.CardID)
}

func TestPost_CardOnOtherAccountRejected(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 10000)
	b := env.newAccount(t, 0)
	ctx := context.Background()

	card, err := env.cards.Issue(ctx, b.ID, "visa", "4222222222222222", time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = env.ledger.Post(ctx, PostingRequest{
		AccountID:  a.ID,
		Type:       "payment",
		AmountKobo: 4000,
		CardID:     &card.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPost_InactiveCardRejected(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 10000)
	ctx := context.Background()

	card, err := env.cards.Issue(ctx, a.ID, "verve", "5061111111111111", time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, env.cards.Deactivate(ctx, card.ID))

	_, err = env.ledger.Post(ctx, PostingRequest{
		AccountID:  a.ID,
		Type:       "payment",
		AmountKobo: 4000,
		CardID:     &card.ID,
	})
	assert.ErrorIs(t, err, domain.ErrCardInactive)

	got, err := env.registry.Balance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.BalanceKobo)
}

func TestPost_BalanceEqualsCompletedPostingSum(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 0)
	ctx := context.Background()

	steps := []struct {
		typ    string
		amount int64
	}{
		{"deposit", 100000},
		{"withdrawal", 30000},
		{"payment", 15000},
		{"credit", 5000},
	}
	for _, step := range steps {
		_, err := env.ledger.Post(ctx, PostingRequest{AccountID: a.ID, Type: step.typ, AmountKobo: step.amount, Reference: step.typ})
		require.NoError(t, err)
	}

	got, err := env.registry.Balance(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), got.BalanceKobo)

	report, err := env.integrity.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean(), "violations: %v", report.Violations)
}
