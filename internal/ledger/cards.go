package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/store"
)

// Cards owns card records. It only stores and deactivates; whether an
// inactive card may authorize a posting is enforced by the posting ledger.
type Cards struct {
	store store.Store
}

// NewCards creates a card registry over the given store.
func NewCards(st store.Store) *Cards {
	return &Cards{store: st}
}

// Issue registers a card against an existing account. Card numbers are
// globally unique.
func (c *Cards) Issue(ctx context.Context, accountID uuid.UUID, cardType, number string, expiry time.Time) (*domain.Card, error) {
	t, err := domain.ParseCardType(cardType)
	if err != nil {
		return nil, err
	}
	if number == "" {
		return nil, fmt.Errorf("%w: card number is required", domain.ErrValidation)
	}
	if _, err := c.store.GetAccount(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownAccount
		}
		return nil, err
	}

	card := &domain.Card{
		ID:        uuid.New(),
		AccountID: accountID,
		Type:      t,
		Number:    number,
		Expiry:    expiry,
		Active:    true,
	}
	if err := c.store.CreateCard(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// Get returns a card or domain.ErrNotFound.
func (c *Cards) Get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return c.store.GetCard(ctx, id)
}

// Deactivate sets active = false. The operation is one-way within this
// module; already-inactive cards deactivate without error.
func (c *Cards) Deactivate(ctx context.Context, id uuid.UUID) error {
	return c.store.DeactivateCard(ctx, id)
}
