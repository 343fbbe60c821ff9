package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/api/problem"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/ledger"
)

// CardHandler exposes the card registry.
type CardHandler struct {
	cards *ledger.Cards
}

func NewCardHandler(cards *ledger.Cards) *CardHandler {
	return &CardHandler{cards: cards}
}

type issueCardRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	Type      string    `json:"type"`
	Number    string    `json:"number"`
	Expiry    string    `json:"expiry"`
}

type cardResponse struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Type      string    `json:"type"`
	Number    string    `json:"number"`
	Expiry    string    `json:"expiry"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toCardResponse(c *domain.Card) cardResponse {
	return cardResponse{
		ID:        c.ID,
		AccountID: c.AccountID,
		Type:      string(c.Type),
		Number:    c.Number,
		Expiry:    c.Expiry.Format("2006-01"),
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

// Issue handles POST /v1/cards.
func (h *CardHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueCardRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), http.StatusText(http.StatusBadRequest), "invalid JSON body")
		return
	}
	expiry, err := time.Parse("2006-01", req.Expiry)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "expiry must be YYYY-MM")
		return
	}

	card, err := h.cards.Issue(r.Context(), req.AccountID, req.Type, req.Number, expiry)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, toCardResponse(card))
}

// Get handles GET /v1/cards/{id}.
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "invalid card id")
		return
	}
	card, err := h.cards.Get(r.Context(), id)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, toCardResponse(card))
}

// Deactivate handles POST /v1/cards/{id}/deactivate. Deactivation is one-way
// and idempotent.
func (h *CardHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "invalid card id")
		return
	}
	if err := h.cards.Deactivate(r.Context(), id); err != nil {
		RespondError(w, r, err)
		return
	}
	card, err := h.cards.Get(r.Context(), id)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, toCardResponse(card))
}
