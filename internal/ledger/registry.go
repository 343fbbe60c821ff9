package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/store"
)

// Registry owns accounts. Balances are never written by callers: the only
// mutation path is adjustBalance, invoked by the posting ledger and the
// transfer coordinator inside an atomic scope.
type Registry struct {
	store store.Store
}

// NewRegistry creates an account registry over the given store.
func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st}
}

// Open creates an account for an existing customer. The type must be one of
// the enumerated products and the number a valid 10-digit string.
func (r *Registry) Open(ctx context.Context, customerID uuid.UUID, accountType, number string) (*domain.Account, error) {
	t, err := domain.ParseAccountType(accountType)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateAccountNumber(number); err != nil {
		return nil, err
	}
	if _, err := r.store.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownCustomer
		}
		return nil, err
	}

	a := &domain.Account{
		ID:         uuid.New(),
		CustomerID: customerID,
		Type:       t,
		Number:     number,
	}
	if err := r.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Balance returns a snapshot of the account, including its balance.
func (r *Registry) Balance(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	a, err := r.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownAccount
		}
		return nil, err
	}
	return a, nil
}

// Statement returns a page of postings against the account, newest first.
func (r *Registry) Statement(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if _, err := r.Balance(ctx, accountID); err != nil {
		return nil, err
	}
	return r.store.ListAccountTransactions(ctx, accountID, pageSize, (page-1)*pageSize)
}

// adjustBalance is the registry's internal-only balance primitive. It runs
// inside an already-open scope with the account lock held. A delta that
// would take the balance negative fails with domain.ErrInsufficientFunds
// and stages nothing; deposits and credits never fail this check.
func adjustBalance(ctx context.Context, tx store.Tx, accountID uuid.UUID, deltaKobo int64) (int64, error) {
	a, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.ErrUnknownAccount
		}
		return 0, err
	}
	next := a.BalanceKobo + deltaKobo
	if next < 0 {
		return 0, domain.ErrInsufficientFunds
	}
	if err := tx.UpdateAccountBalance(ctx, accountID, next); err != nil {
		return 0, err
	}
	return next, nil
}
