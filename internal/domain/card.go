package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CardType is the closed set of card schemes.
type CardType string

const (
	CardMastercard CardType = "mastercard"
	CardVisa       CardType = "visa"
	CardVerve      CardType = "verve"
	CardGiftcard   CardType = "giftcard"
)

// ParseCardType maps a string onto the closed set.
func ParseCardType(s string) (CardType, error) {
	switch CardType(strings.ToLower(strings.TrimSpace(s))) {
	case CardMastercard:
		return CardMastercard, nil
	case CardVisa:
		return CardVisa, nil
	case CardVerve:
		return CardVerve, nil
	case CardGiftcard:
		return CardGiftcard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCardType, s)
	}
}

// Card references exactly one account. Deactivation is one-way here;
// reactivation belongs to a separately audited operation outside this
// module.
type Card struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Type      CardType  `json:"type"`
	Number    string    `json:"number"`
	Expiry    time.Time `json:"expiry"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
