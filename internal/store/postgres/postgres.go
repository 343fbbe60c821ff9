// Package postgres implements the store contract on pgx. Atomicity comes
// from database transactions, per-account serialization from row locks
// taken in a canonical order, and the unique constraints live in the
// schema itself.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/store"
)

const defaultTxRetryLimit = 3

// Store is a postgres-backed implementation of store.Store.
type Store struct {
	pool       *pgxpool.Pool
	retryLimit int
}

// Option configures the store.
type Option func(*Store)

// WithTxRetry sets how many times a scope is retried on serialization or
// deadlock failures before surfacing domain.ErrContention.
func WithTxRetry(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.retryLimit = limit
		}
	}
}

// New wraps a pgx connection pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, retryLimit: defaultTxRetryLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the schema. Transfer-to-transaction links are RESTRICT on
// delete: the ledger is append-only, so nothing a transfer references may
// ever go away underneath it.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id UUID PRIMARY KEY,
	first_name TEXT NOT NULL,
	middle_name TEXT NOT NULL DEFAULT '',
	surname TEXT NOT NULL,
	birth_date DATE NOT NULL,
	email TEXT NOT NULL CONSTRAINT customers_email_key UNIQUE,
	phone TEXT NOT NULL CONSTRAINT customers_phone_key UNIQUE,
	address TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	customer_id UUID NOT NULL REFERENCES customers(id) ON DELETE RESTRICT,
	type TEXT NOT NULL,
	number TEXT NOT NULL CONSTRAINT accounts_number_key UNIQUE,
	balance_kobo BIGINT NOT NULL DEFAULT 0 CHECK (balance_kobo >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
	type TEXT NOT NULL,
	direction TEXT NOT NULL,
	status TEXT NOT NULL,
	amount_kobo BIGINT NOT NULL CHECK (amount_kobo > 0),
	reference TEXT NOT NULL DEFAULT '',
	card_id UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS transfers (
	id UUID PRIMARY KEY,
	debit_transaction_id UUID NOT NULL CONSTRAINT transfers_debit_leg_key UNIQUE REFERENCES transactions(id) ON DELETE RESTRICT,
	credit_transaction_id UUID NOT NULL CONSTRAINT transfers_credit_leg_key UNIQUE REFERENCES transactions(id) ON DELETE RESTRICT,
	from_account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
	to_account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
	amount_kobo BIGINT NOT NULL CHECK (amount_kobo > 0),
	sender_name TEXT NOT NULL,
	beneficiary_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (from_account_id <> to_account_id)
);

CREATE TABLE IF NOT EXISTS cards (
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
	type TEXT NOT NULL,
	number TEXT NOT NULL CONSTRAINT cards_number_key UNIQUE,
	expiry DATE NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func (s *Store) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, first_name, middle_name, surname, birth_date, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		c.ID, c.FirstName, c.MiddleName, c.Surname, c.BirthDate, c.Email, c.Phone, c.Address,
	).Scan(&c.CreatedAt)
	if err != nil {
		return mapUniqueViolation(err, "create customer")
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, middle_name, surname, birth_date, email, phone, address, created_at
		FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.FirstName, &c.MiddleName, &c.Surname, &c.BirthDate, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCustomerAddress(ctx context.Context, id uuid.UUID, address string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE customers SET address = $1 WHERE id = $2`, address, id)
	if err != nil {
		return fmt.Errorf("update customer address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, customer_id, type, number, balance_kobo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		a.ID, a.CustomerID, a.Type, a.Number, a.BalanceKobo,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err, "create account")
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		SELECT id, customer_id, type, number, balance_kobo, created_at, updated_at
		FROM accounts WHERE id = $1`, id))
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_id, type, number, balance_kobo, created_at, updated_at
		FROM accounts ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Type, &a.Number, &a.BalanceKobo, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx, `
		SELECT id, account_id, type, direction, status, amount_kobo, reference, card_id, created_at
		FROM transactions WHERE id = $1`, id))
}

func (s *Store) ListAccountTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, type, direction, status, amount_kobo, reference, card_id, created_at
		FROM transactions WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Direction, &t.Status, &t.AmountKobo, &t.Reference, &t.CardID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTransfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	t := &domain.Transfer{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, debit_transaction_id, credit_transaction_id, from_account_id, to_account_id,
		       amount_kobo, sender_name, beneficiary_name, created_at
		FROM transfers WHERE id = $1`, id,
	).Scan(&t.ID, &t.DebitTransactionID, &t.CreditTransactionID, &t.FromAccountID, &t.ToAccountID,
		&t.AmountKobo, &t.SenderName, &t.BeneficiaryName, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransfers(ctx context.Context) ([]domain.Transfer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, debit_transaction_id, credit_transaction_id, from_account_id, to_account_id,
		       amount_kobo, sender_name, beneficiary_name, created_at
		FROM transfers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []domain.Transfer
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(&t.ID, &t.DebitTransactionID, &t.CreditTransactionID, &t.FromAccountID, &t.ToAccountID,
			&t.AmountKobo, &t.SenderName, &t.BeneficiaryName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateCard(ctx context.Context, c *domain.Card) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO cards (id, account_id, type, number, expiry, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		c.ID, c.AccountID, c.Type, c.Number, c.Expiry, c.Active,
	).Scan(&c.CreatedAt)
	if err != nil {
		return mapUniqueViolation(err, "create card")
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	c := &domain.Card{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, account_id, type, number, expiry, active, created_at
		FROM cards WHERE id = $1`, id,
	).Scan(&c.ID, &c.AccountID, &c.Type, &c.Number, &c.Expiry, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

func (s *Store) DeactivateCard(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE cards SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RunInTx executes fn within a database transaction, retrying the whole
// scope on serialization or deadlock failures.
func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < s.retryLimit; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", domain.ErrContention, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockAccounts(ctx context.Context, ids ...uuid.UUID) error {
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
		var locked uuid.UUID
		err := t.tx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrUnknownAccount
			}
			return fmt.Errorf("lock account %s: %w", id, err)
		}
	}
	return nil
}

func (t *pgTx) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return scanAccount(t.tx.QueryRow(ctx, `
		SELECT id, customer_id, type, number, balance_kobo, created_at, updated_at
		FROM accounts WHERE id = $1`, id))
}

func (t *pgTx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balanceKobo int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts SET balance_kobo = $1, updated_at = NOW() WHERE id = $2`, balanceKobo, id)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrUnknownAccount
	}
	return nil
}

func (t *pgTx) CreateTransaction(ctx context.Context, tr *domain.Transaction) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transactions (id, account_id, type, direction, status, amount_kobo, reference, card_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		tr.ID, tr.AccountID, tr.Type, tr.Direction, tr.Status, tr.AmountKobo, tr.Reference, tr.CardID,
	).Scan(&tr.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUnknownAccount
		}
		return fmt.Errorf("create posting: %w", err)
	}
	return nil
}

func (t *pgTx) SetTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`,
		status, id, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("set posting status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("posting %s is not pending", id)
	}
	return nil
}

func (t *pgTx) CreateTransfer(ctx context.Context, tr *domain.Transfer) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transfers (id, debit_transaction_id, credit_transaction_id, from_account_id, to_account_id,
		                       amount_kobo, sender_name, beneficiary_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		tr.ID, tr.DebitTransactionID, tr.CreditTransactionID, tr.FromAccountID, tr.ToAccountID,
		tr.AmountKobo, tr.SenderName, tr.BeneficiaryName,
	).Scan(&tr.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("posting already linked to a transfer")
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(&a.ID, &a.CustomerID, &a.Type, &a.Number, &a.BalanceKobo, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(&t.ID, &t.AccountID, &t.Type, &t.Direction, &t.Status, &t.AmountKobo, &t.Reference, &t.CardID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get posting: %w", err)
	}
	return t, nil
}

func mapUniqueViolation(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			switch pgErr.ConstraintName {
			case "customers_email_key", "customers_phone_key":
				return domain.ErrDuplicateIdentity
			case "accounts_number_key":
				return domain.ErrDuplicateAccountNumber
			case "cards_number_key":
				return domain.ErrDuplicateCardNumber
			}
		case "23503":
			return domain.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
