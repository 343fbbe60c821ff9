package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/observability"
	"github.com/tobiodua/bankcore/internal/store"
	"go.uber.org/zap"
)

// Ledger posts single signed entries against accounts. A posting and its
// balance change commit in one atomic scope; once completed or failed a
// posting is an immutable fact, and corrections are new reversing postings.
type Ledger struct {
	store store.Store
}

// NewLedger creates a posting ledger over the given store.
func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// PostingRequest describes one posting. Direction is derived from the type;
// it must be supplied explicitly only for foreign postings (inbound =
// credit, outbound = debit). CardID, when set, names the card authorizing
// the posting.
type PostingRequest struct {
	AccountID  uuid.UUID
	Type       string
	AmountKobo int64
	Reference  string
	Direction  string
	CardID     *uuid.UUID
}

// Post validates the request, writes a pending posting, applies the signed
// amount to the account balance and completes the posting, all in one
// scope. On insufficient funds the scope rolls back, the balance is
// untouched, and the posting is persisted as a failed row.
func (l *Ledger) Post(ctx context.Context, req PostingRequest) (*domain.Transaction, error) {
	if req.AmountKobo <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	typ, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}
	dir, ok := typ.IntrinsicDirection()
	if !ok {
		dir, err = domain.ParseDirection(req.Direction)
		if err != nil {
			return nil, fmt.Errorf("%w: %s postings need an explicit direction", domain.ErrInvalidTransactionType, typ)
		}
	}
	if req.CardID != nil {
		if err := l.authorizeCard(ctx, *req.CardID, req.AccountID); err != nil {
			return nil, err
		}
	}

	posting := &domain.Transaction{
		ID:         uuid.New(),
		AccountID:  req.AccountID,
		Type:       typ,
		Direction:  dir,
		Status:     domain.StatusPending,
		AmountKobo: req.AmountKobo,
		Reference:  req.Reference,
		CardID:     req.CardID,
	}

	err = l.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockAccounts(ctx, req.AccountID); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, posting); err != nil {
			return err
		}
		if _, err := adjustBalance(ctx, tx, req.AccountID, posting.SignedAmount()); err != nil {
			return err
		}
		return tx.SetTransactionStatus(ctx, posting.ID, domain.StatusCompleted)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			recordFailedPostings(ctx, l.store, posting)
		}
		observability.IncrementPosting(string(typ), "failed")
		if errors.Is(err, domain.ErrContention) {
			observability.IncrementContention()
		}
		return nil, err
	}

	posting.Status = domain.StatusCompleted
	observability.IncrementPosting(string(typ), "completed")
	return posting, nil
}

// Get returns a posting or domain.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return l.store.GetTransaction(ctx, id)
}

func (l *Ledger) authorizeCard(ctx context.Context, cardID, accountID uuid.UUID) error {
	card, err := l.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if card.AccountID != accountID {
		return domain.ErrNotFound
	}
	if !card.Active {
		return domain.ErrCardInactive
	}
	return nil
}

// recordFailedPostings persists rolled-back postings as immutable failed
// rows in their own scope, keeping the ledger's append-only audit trail.
func recordFailedPostings(ctx context.Context, st store.Store, postings ...*domain.Transaction) {
	err := st.RunInTx(ctx, func(tx store.Tx) error {
		for _, p := range postings {
			failed := *p
			failed.Status = domain.StatusFailed
			if err := tx.CreateTransaction(ctx, &failed); err != nil {
				return err
			}
			p.Status = domain.StatusFailed
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("failed posting not recorded", zap.Error(err))
	}
}
