package handler

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/api/problem"
	"github.com/tobiodua/bankcore/internal/ledger"
	"go.uber.org/zap"
)

// AuthHandler issues bearer tokens for existing customers. This stands in
// for an upstream identity provider; the token carries the customer id the
// protected routes authorize against.
type AuthHandler struct {
	directory *ledger.Directory
	secret    []byte
	issuer    string
	audience  string
	ttl       time.Duration
}

func NewAuthHandler(directory *ledger.Directory, secret []byte, issuer, audience string, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthHandler{directory: directory, secret: secret, issuer: issuer, audience: audience, ttl: ttl}
}

type tokenRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token handles POST /v1/auth/token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), http.StatusText(http.StatusBadRequest), "invalid JSON body")
		return
	}
	if _, err := h.directory.Find(r.Context(), req.CustomerID); err != nil {
		RespondError(w, r, err)
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.ttl)
	claims := jwt.MapClaims{
		"customer_id": req.CustomerID.String(),
		"role":        "customer",
		"iat":         now.Unix(),
		"exp":         expiresAt.Unix(),
	}
	if h.issuer != "" {
		claims["iss"] = h.issuer
	}
	if h.audience != "" {
		claims["aud"] = h.audience
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		zap.L().Error("sign token", zap.Error(err))
		problem.Write(w, r, http.StatusInternalServerError, problem.Type("internal-server-error"), http.StatusText(http.StatusInternalServerError), "unable to issue token")
		return
	}
	RespondJSON(w, http.StatusOK, tokenResponse{Token: signed, ExpiresAt: expiresAt})
}
