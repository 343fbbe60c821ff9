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

// PostingHandler exposes the posting ledger.
type PostingHandler struct {
	ledger *ledger.Ledger
}

func NewPostingHandler(l *ledger.Ledger) *PostingHandler {
	return &PostingHandler{ledger: l}
}

type postingRequest struct {
	AccountID uuid.UUID  `json:"account_id"`
	Type      string     `json:"type"`
	Amount    string     `json:"amount"`
	Reference string     `json:"reference"`
	Direction string     `json:"direction,omitempty"`
	CardID    *uuid.UUID `json:"card_id,omitempty"`
}

type transactionPayload struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	Type      string     `json:"type"`
	Direction string     `json:"direction"`
	Status    string     `json:"status"`
	Amount    string     `json:"amount"`
	Reference string     `json:"reference"`
	CardID    *uuid.UUID `json:"card_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toTransactionPayload(t *domain.Transaction) transactionPayload {
	return transactionPayload{
		ID:        t.ID,
		AccountID: t.AccountID,
		Type:      string(t.Type),
		Direction: string(t.Direction),
		Status:    string(t.Status),
		Amount:    domain.FormatAmount(t.AmountKobo),
		Reference: t.Reference,
		CardID:    t.CardID,
		CreatedAt: t.CreatedAt,
	}
}

// Create handles POST /v1/postings.
func (h *PostingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req postingRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), http.StatusText(http.StatusBadRequest), "invalid JSON body")
		return
	}
	amountKobo, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	tx, err := h.ledger.Post(r.Context(), ledger.PostingRequest{
		AccountID:  req.AccountID,
		Type:       req.Type,
		AmountKobo: amountKobo,
		Reference:  req.Reference,
		Direction:  req.Direction,
		CardID:     req.CardID,
	})
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, toTransactionPayload(tx))
}

// Get handles GET /v1/postings/{id}.
func (h *PostingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "invalid posting id")
		return
	}
	tx, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, toTransactionPayload(tx))
}
