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

// TransferHandler exposes the transfer coordinator.
type TransferHandler struct {
	coordinator *ledger.Coordinator
}

func NewTransferHandler(c *ledger.Coordinator) *TransferHandler {
	return &TransferHandler{coordinator: c}
}

type transferRequest struct {
	FromAccountID   uuid.UUID `json:"from_account_id"`
	ToAccountID     uuid.UUID `json:"to_account_id"`
	Amount          string    `json:"amount"`
	SenderName      string    `json:"sender_name"`
	BeneficiaryName string    `json:"beneficiary_name"`
}

type transferResponse struct {
	ID                  uuid.UUID `json:"id"`
	DebitTransactionID  uuid.UUID `json:"debit_transaction_id"`
	CreditTransactionID uuid.UUID `json:"credit_transaction_id"`
	FromAccountID       uuid.UUID `json:"from_account_id"`
	ToAccountID         uuid.UUID `json:"to_account_id"`
	Amount              string    `json:"amount"`
	SenderName          string    `json:"sender_name"`
	BeneficiaryName     string    `json:"beneficiary_name"`
	CreatedAt           time.Time `json:"created_at"`
}

func toTransferResponse(t *domain.Transfer) transferResponse {
	return transferResponse{
		ID:                  t.ID,
		DebitTransactionID:  t.DebitTransactionID,
		CreditTransactionID: t.CreditTransactionID,
		FromAccountID:       t.FromAccountID,
		ToAccountID:         t.ToAccountID,
		Amount:              domain.FormatAmount(t.AmountKobo),
		SenderName:          t.SenderName,
		BeneficiaryName:     t.BeneficiaryName,
		CreatedAt:           t.CreatedAt,
	}
}

// Create handles POST /v1/transfers.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), http.StatusText(http.StatusBadRequest), "invalid JSON body")
		return
	}
	amountKobo, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	t, err := h.coordinator.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, amountKobo, req.SenderName, req.BeneficiaryName)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, toTransferResponse(t))
}

// Get handles GET /v1/transfers/{id}.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "invalid transfer id")
		return
	}
	t, err := h.coordinator.Get(r.Context(), id)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, toTransferResponse(t))
}
