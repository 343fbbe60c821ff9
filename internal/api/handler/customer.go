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

// CustomerHandler exposes the customer directory.
type CustomerHandler struct {
	directory *ledger.Directory
}

func NewCustomerHandler(directory *ledger.Directory) *CustomerHandler {
	return &CustomerHandler{directory: directory}
}

type createCustomerRequest struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	Surname    string `json:"surname"`
	BirthDate  string `json:"birth_date"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type customerResponse struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	Surname    string    `json:"surname"`
	BirthDate  string    `json:"birth_date"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCustomerResponse(c *domain.Customer) customerResponse {
	return customerResponse{
		ID:         c.ID,
		FirstName:  c.FirstName,
		MiddleName: c.MiddleName,
		Surname:    c.Surname,
		BirthDate:  c.BirthDate.Format("2006-01-02"),
		Email:      c.Email,
		Phone:      c.Phone,
		Address:    c.Address,
		CreatedAt:  c.CreatedAt,
	}
}

// Create handles POST /v1/customers.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), http.StatusText(http.StatusBadRequest), "invalid JSON body")
		return
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "birth_date must be YYYY-MM-DD")
		return
	}

	c, err := h.directory.Create(r.Context(), ledger.CreateCustomerInput{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		Surname:    req.Surname,
		BirthDate:  birthDate,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
	})
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, toCustomerResponse(c))
}

// Get handles GET /v1/customers/{id}.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "invalid customer id")
		return
	}
	c, err := h.directory.Find(r.Context(), id)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, toCustomerResponse(c))
}

type updateCustomerRequest struct {
	FirstName  *string `json:"first_name"`
	MiddleName *string `json:"middle_name"`
	Surname    *string `json:"surname"`
	BirthDate  *string `json:"birth_date"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
}

// Update handles PATCH /v1/customers/{id}. Only the address is mutable;
// patches naming identity fields are rejected.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request"), http.StatusText(http.StatusBadRequest), "invalid customer id")
		return
	}
	var req updateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), http.StatusText(http.StatusBadRequest), "invalid JSON body")
		return
	}

	patch := domain.CustomerPatch{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		Surname:    req.Surname,
		BirthDate:  req.BirthDate,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
	}

	c, err := h.directory.Update(r.Context(), id, patch)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, toCustomerResponse(c))
}
