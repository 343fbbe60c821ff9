// Package memory implements the store contract with arena-style maps keyed
// by id. Relations are foreign-key lookups rather than embedded object
// graphs, and balance mutations serialize through per-account mutexes with
// a bounded try-lock budget.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/store"
)

const (
	defaultLockRetryLimit = 50
	defaultLockRetryDelay = 2 * time.Millisecond
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	customers    map[uuid.UUID]domain.Customer
	accounts     map[uuid.UUID]domain.Account
	transactions map[uuid.UUID]domain.Transaction
	transfers    map[uuid.UUID]domain.Transfer
	cards        map[uuid.UUID]domain.Card

	emailIndex         map[string]uuid.UUID
	phoneIndex         map[string]uuid.UUID
	accountNumberIndex map[string]uuid.UUID
	cardNumberIndex    map[string]uuid.UUID
	debitLegIndex      map[uuid.UUID]uuid.UUID
	creditLegIndex     map[uuid.UUID]uuid.UUID
	accountPostings    map[uuid.UUID][]uuid.UUID

	lockMu       sync.Mutex
	accountLocks map[uuid.UUID]*sync.Mutex

	retryLimit int
	retryDelay time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithLockRetry sets the per-account lock acquisition budget.
func WithLockRetry(limit int, delay time.Duration) Option {
	return func(s *Store) {
		if limit > 0 {
			s.retryLimit = limit
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		customers:          make(map[uuid.UUID]domain.Customer),
		accounts:           make(map[uuid.UUID]domain.Account),
		transactions:       make(map[uuid.UUID]domain.Transaction),
		transfers:          make(map[uuid.UUID]domain.Transfer),
		cards:              make(map[uuid.UUID]domain.Card),
		emailIndex:         make(map[string]uuid.UUID),
		phoneIndex:         make(map[string]uuid.UUID),
		accountNumberIndex: make(map[string]uuid.UUID),
		cardNumberIndex:    make(map[string]uuid.UUID),
		debitLegIndex:      make(map[uuid.UUID]uuid.UUID),
		creditLegIndex:     make(map[uuid.UUID]uuid.UUID),
		accountPostings:    make(map[uuid.UUID][]uuid.UUID),
		accountLocks:       make(map[uuid.UUID]*sync.Mutex),
		retryLimit:         defaultLockRetryLimit,
		retryDelay:         defaultLockRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emailIndex[c.Email]; taken {
		return domain.ErrDuplicateIdentity
	}
	if _, taken := s.phoneIndex[c.Phone]; taken {
		return domain.ErrDuplicateIdentity
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.customers[c.ID] = *c
	s.emailIndex[c.Email] = c.ID
	s.phoneIndex[c.Phone] = c.ID
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCustomerAddress(ctx context.Context, id uuid.UUID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Address = address
	s.customers[id] = c
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.accountNumberIndex[a.Number]; taken {
		return domain.ErrDuplicateAccountNumber
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt
	s.accounts[a.ID] = *a
	s.accountNumberIndex[a.Number] = a.ID
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListAccountTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.accountPostings[accountID]
	out := make([]domain.Transaction, 0, limit)
	// Newest first.
	for i := len(ids) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.transactions[ids[i]])
	}
	return out, nil
}

func (s *Store) GetTransfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTransfers(ctx context.Context) ([]domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateCard(ctx context.Context, c *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.cardNumberIndex[c.Number]; taken {
		return domain.ErrDuplicateCardNumber
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.cards[c.ID] = *c
	s.cardNumberIndex[c.Number] = c.ID
	return nil
}

func (s *Store) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *Store) DeactivateCard(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Active = false
	s.cards[id] = c
	return nil
}

// RunInTx runs fn against a buffered write set. Nothing fn stages is
// visible to readers until commit; an error from fn discards the stage and
// releases any account locks it took.
func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx := &memTx{
		s:        s,
		balances: make(map[uuid.UUID]int64),
		statuses: make(map[uuid.UUID]domain.TransactionStatus),
	}
	defer tx.releaseLocks()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) lockFor(id uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lk, ok := s.accountLocks[id]
	if !ok {
		lk = &sync.Mutex{}
		s.accountLocks[id] = lk
	}
	return lk
}

type memTx struct {
	s       *Store
	locked  []uuid.UUID
	mutexes []*sync.Mutex

	balances     map[uuid.UUID]int64
	transactions []domain.Transaction
	statuses     map[uuid.UUID]domain.TransactionStatus
	transfers    []domain.Transfer
}

func (tx *memTx) LockAccounts(ctx context.Context, ids ...uuid.UUID) error {
	// Canonical lock order keeps concurrent opposite-direction scopes from
	// deadlocking.
	unique := make(map[uuid.UUID]struct{}, len(ids))
	ordered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	for _, id := range ordered {
		if _, err := tx.s.GetAccount(ctx, id); err != nil {
			return domain.ErrUnknownAccount
		}
		lk := tx.s.lockFor(id)
		if err := tx.acquire(ctx, lk); err != nil {
			return err
		}
		tx.locked = append(tx.locked, id)
		tx.mutexes = append(tx.mutexes, lk)
	}
	return nil
}

func (tx *memTx) acquire(ctx context.Context, lk *sync.Mutex) error {
	for attempt := 0; attempt < tx.s.retryLimit; attempt++ {
		if lk.TryLock() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tx.s.retryDelay):
		}
	}
	return domain.ErrContention
}

func (tx *memTx) holdsLock(id uuid.UUID) bool {
	for _, held := range tx.locked {
		if held == id {
			return true
		}
	}
	return false
}

func (tx *memTx) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, err := tx.s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if staged, ok := tx.balances[id]; ok {
		a.BalanceKobo = staged
	}
	return a, nil
}

func (tx *memTx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balanceKobo int64) error {
	if !tx.holdsLock(id) {
		return fmt.Errorf("balance write on unlocked account %s", id)
	}
	if _, err := tx.s.GetAccount(ctx, id); err != nil {
		return err
	}
	tx.balances[id] = balanceKobo
	return nil
}

func (tx *memTx) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	if _, err := tx.s.GetAccount(ctx, t.AccountID); err != nil {
		return domain.ErrUnknownAccount
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	tx.transactions = append(tx.transactions, *t)
	return nil
}

func (tx *memTx) SetTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	current, ok := tx.stagedStatus(id)
	if !ok {
		tx.s.mu.RLock()
		committed, exists := tx.s.transactions[id]
		tx.s.mu.RUnlock()
		if !exists {
			return domain.ErrNotFound
		}
		current = committed.Status
	}
	if current != domain.StatusPending {
		return fmt.Errorf("posting %s is %s and immutable", id, current)
	}
	tx.statuses[id] = status
	return nil
}

func (tx *memTx) stagedStatus(id uuid.UUID) (domain.TransactionStatus, bool) {
	if st, ok := tx.statuses[id]; ok {
		return st, true
	}
	for _, t := range tx.transactions {
		if t.ID == id {
			return t.Status, true
		}
	}
	return "", false
}

func (tx *memTx) CreateTransfer(ctx context.Context, t *domain.Transfer) error {
	tx.s.mu.RLock()
	_, debitTaken := tx.s.debitLegIndex[t.DebitTransactionID]
	_, creditTaken := tx.s.creditLegIndex[t.CreditTransactionID]
	tx.s.mu.RUnlock()
	if debitTaken || creditTaken {
		return fmt.Errorf("posting already linked to a transfer")
	}
	for _, staged := range tx.transfers {
		if staged.DebitTransactionID == t.DebitTransactionID || staged.CreditTransactionID == t.CreditTransactionID {
			return fmt.Errorf("posting already linked to a transfer")
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	tx.transfers = append(tx.transfers, *t)
	return nil
}

func (tx *memTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for id, balance := range tx.balances {
		a := s.accounts[id]
		a.BalanceKobo = balance
		a.UpdatedAt = now
		s.accounts[id] = a
	}
	for _, t := range tx.transactions {
		if st, ok := tx.statuses[t.ID]; ok {
			t.Status = st
			delete(tx.statuses, t.ID)
		}
		s.transactions[t.ID] = t
		s.accountPostings[t.AccountID] = append(s.accountPostings[t.AccountID], t.ID)
	}
	for id, st := range tx.statuses {
		t := s.transactions[id]
		t.Status = st
		s.transactions[id] = t
	}
	for _, t := range tx.transfers {
		s.transfers[t.ID] = t
		s.debitLegIndex[t.DebitTransactionID] = t.ID
		s.creditLegIndex[t.CreditTransactionID] = t.ID
	}
	return nil
}

func (tx *memTx) releaseLocks() {
	for i := len(tx.mutexes) - 1; i >= 0; i-- {
		tx.mutexes[i].Unlock()
	}
	tx.mutexes = nil
	tx.locked = nil
}
