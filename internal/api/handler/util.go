package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tobiodua/bankcore/internal/api/problem"
	"github.com/tobiodua/bankcore/internal/domain"
	"go.uber.org/zap"
)

// RespondJSON writes v as a JSON response.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			zap.L().Error("encode response", zap.Error(err))
		}
	}
}

// RespondError maps domain sentinels onto RFC 7807 responses. Errors with no
// mapping are logged and reported as 500 without leaking internals.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status, slug := classify(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		if slug == "internal-server-error" {
			detail = "unexpected server error"
		}
	}
	problem.Write(w, r, status, problem.Type(slug), http.StatusText(status), detail)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidTransactionType),
		errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidCardType),
		errors.Is(err, domain.ErrInvalidAccountNumber),
		errors.Is(err, domain.ErrSameAccount):
		return http.StatusBadRequest, "invalid-request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not-found"
	case errors.Is(err, domain.ErrUnknownCustomer):
		return http.StatusNotFound, "unknown-customer"
	case errors.Is(err, domain.ErrUnknownAccount):
		return http.StatusNotFound, "unknown-account"
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return http.StatusConflict, "duplicate-identity"
	case errors.Is(err, domain.ErrDuplicateAccountNumber):
		return http.StatusConflict, "duplicate-account-number"
	case errors.Is(err, domain.ErrDuplicateCardNumber):
		return http.StatusConflict, "duplicate-card-number"
	case errors.Is(err, domain.ErrContention):
		return http.StatusConflict, "account-contention"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient-funds"
	case errors.Is(err, domain.ErrImmutableField):
		return http.StatusUnprocessableEntity, "immutable-field"
	case errors.Is(err, domain.ErrCardInactive):
		return http.StatusUnprocessableEntity, "card-inactive"
	case errors.Is(err, domain.ErrTransferIncomplete):
		return http.StatusInternalServerError, "transfer-incomplete"
	default:
		return http.StatusInternalServerError, "internal-server-error"
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}
