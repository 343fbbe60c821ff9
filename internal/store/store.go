package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/domain"
)

// Store is the persistence contract the ledger core runs against. Two
// implementations exist: an arena-style in-memory store and a pgx-backed
// postgres store. Both enforce the unique constraints (email, phone,
// account number, card number, transfer legs) and both provide an atomic
// unit of work via RunInTx.
type Store interface {
	// Customers. CreateCustomer fails with domain.ErrDuplicateIdentity on
	// email or phone collision.
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	UpdateCustomerAddress(ctx context.Context, id uuid.UUID, address string) error

	// Accounts. CreateAccount fails with domain.ErrDuplicateAccountNumber
	// on number collision.
	CreateAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// Postings and transfers, read side.
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListAccountTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
	GetTransfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	ListTransfers(ctx context.Context) ([]domain.Transfer, error)

	// Cards. CreateCard fails with domain.ErrDuplicateCardNumber.
	CreateCard(ctx context.Context, c *domain.Card) error
	GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	DeactivateCard(ctx context.Context, id uuid.UUID) error

	// RunInTx runs fn inside one atomic scope: every mutation staged
	// through the Tx commits together or not at all. Implementations may
	// retry fn on lock contention; exhausting the retry budget surfaces
	// domain.ErrContention.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the mutation surface available inside an atomic scope. Balance
// writes require the account to have been locked through LockAccounts
// first, which is what serializes concurrent postings per account.
type Tx interface {
	// LockAccounts takes exclusive per-account locks in a canonical order
	// so two scopes can never deadlock. Bounded retries, then
	// domain.ErrContention.
	LockAccounts(ctx context.Context, ids ...uuid.UUID) error

	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, balanceKobo int64) error

	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	SetTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error

	CreateTransfer(ctx context.Context, t *domain.Transfer) error
}
