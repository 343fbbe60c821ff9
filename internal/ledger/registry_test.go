package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobiodua/bankcore/internal/domain"
)

func TestRegistryOpen_UnknownCustomer(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.Open(context.Background(), uuid.New(), "savings", "0123456789")
	assert.ErrorIs(t, err, domain.ErrUnknownCustomer)
}

func TestRegistryOpen_InvalidType(t *testing.T) {
	env := newTestEnv(t)
	c := env.newCustomer(t)

	_, err := env.registry.Open(context.Background(), c.ID, "checking", "0123456789")
	assert.ErrorIs(t, err, domain.ErrInvalidAccountType)
}

func TestRegistryOpen_InvalidNumber(t *testing.T) {
	env := newTestEnv(t)
	c := env.newCustomer(t)

	_, err := env.registry.Open(context.Background(), c.ID, "savings", "12345")
	assert.ErrorIs(t, err, domain.ErrInvalidAccountNumber)
}

func TestRegistryOpen_DuplicateNumber(t *testing.T) {
	env := newTestEnv(t)
	c := env.newCustomer(t)

	_, err := env.registry.Open(context.Background(), c.ID, "savings", "0777777777")
	require.NoError(t, err)

	other := env.newCustomer(t)
	_, err = env.registry.Open(context.Background(), other.ID, "current", "0777777777")
	assert.ErrorIs(t, err, domain.ErrDuplicateAccountNumber)
}

func TestRegistryBalance_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.Balance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)
}

func TestRegistryStatement_PagesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	a := env.newAccount(t, 0)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := env.ledger.Post(ctx, PostingRequest{
			AccountID:  a.ID,
			Type:       "deposit",
			AmountKobo: int64(i * 1000),
			Reference:  "salary",
		})
		require.NoError(t, err)
	}

	page, err := env.registry.Statement(ctx, a.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3000), page[0].AmountKobo)
	assert.Equal(t, int64(2000), page[1].AmountKobo)

	page, err = env.registry.Statement(ctx, a.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1000), page[0].AmountKobo)
}

func TestRegistryStatement_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.Statement(context.Background(), uuid.New(), 1, 10)
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)
}
