package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/api/problem"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/ledger"
)

// AccountHandler exposes the account registry.
type AccountHandler struct {
	registry *ledger.Registry
}

func NewAccountHandler(registry *ledger.Registry) *AccountHandler {
	return &AccountHandler{registry: registry}
}

type openAccountRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Type       string    `json:"type"`
	Number     string    `json:"number"`
}

type accountResponse struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Type       string    `json:"type"`
	Number     string    `json:"number"`
	Balance    string    `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		CustomerID: a.CustomerID,
		Type:       string(a.Type),
		Number:     a.Number,
		Balance:    a.Balance(),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// Open handles POST /v1/accounts.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), http.StatusText(http.StatusBadRequest), "invalid JSON body")
		return
	}
	a, err := h.registry.Open(r.Context(), req.CustomerID, req.Type, req.Number)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, toAccountResponse(a))
}

// Balance handles GET /v1/accounts/{id}/balance.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "invalid account id")
		return
	}
	a, err := h.registry.Balance(r.Context(), id)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, toAccountResponse(a))
}

type statementResponse struct {
	AccountID uuid.UUID            `json:"account_id"`
	Page      int                  `json:"page"`
	PageSize  int                  `json:"page_size"`
	Postings  []transactionPayload `json:"postings"`
}

// Statement handles GET /v1/accounts/{id}/statement?page=&page_size=.
func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "invalid account id")
		return
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 10)

	txs, err := h.registry.Statement(r.Context(), id, page, pageSize)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	postings := make([]transactionPayload, 0, len(txs))
	for i := range txs {
		postings = append(postings, toTransactionPayload(&txs[i]))
	}
	RespondJSON(w, http.StatusOK, statementResponse{
		AccountID: id,
		Page:      page,
		PageSize:  pageSize,
		Postings:  postings,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
