package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/tobiodua/bankcore/internal/api/handler"
	"github.com/tobiodua/bankcore/internal/api/middleware"
	"github.com/tobiodua/bankcore/internal/idempotency"
	"github.com/tobiodua/bankcore/internal/ledger"
	"go.uber.org/zap"
)

// Router wires the HTTP surface over the ledger services.
type Router struct {
	Directory   *ledger.Directory
	Registry    *ledger.Registry
	Ledger      *ledger.Ledger
	Coordinator *ledger.Coordinator
	Cards       *ledger.Cards

	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Idempotency *idempotency.Store

	Logger      *zap.Logger
	JWTSecret   []byte
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration
	PublicRPS   int
	AuthRPS     int
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.Logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.Logger))

	authHandler := handler.NewAuthHandler(api.Directory, api.JWTSecret, api.JWTIssuer, api.JWTAudience, api.TokenTTL)
	customerHandler := handler.NewCustomerHandler(api.Directory)
	accountHandler := handler.NewAccountHandler(api.Registry)
	postingHandler := handler.NewPostingHandler(api.Ledger)
	transferHandler := handler.NewTransferHandler(api.Coordinator)
	cardHandler := handler.NewCardHandler(api.Cards)
	healthHandler := handler.NewHealthHandler(api.Pool, api.Redis)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.PublicRPS))
		r.Post("/v1/auth/token", authHandler.Token)
		r.Post("/v1/customers", customerHandler.Create)
	})

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.AuthRPS))

		r.Get("/v1/customers/{id}", customerHandler.Get)
		r.Patch("/v1/customers/{id}", customerHandler.Update)

		r.Post("/v1/accounts", accountHandler.Open)
		r.Get("/v1/accounts/{id}/balance", accountHandler.Balance)
		r.Get("/v1/accounts/{id}/statement", accountHandler.Statement)

		r.With(middleware.IdempotencyMiddleware(api.Idempotency)).Post("/v1/postings", postingHandler.Create)
		r.Get("/v1/postings/{id}", postingHandler.Get)

		r.With(middleware.IdempotencyMiddleware(api.Idempotency)).Post("/v1/transfers", transferHandler.Create)
		r.Get("/v1/transfers/{id}", transferHandler.Get)

		r.Post("/v1/cards", cardHandler.Issue)
		r.Get("/v1/cards/{id}", cardHandler.Get)
		r.Post("/v1/cards/{id}/deactivate", cardHandler.Deactivate)
	})

	return r
}
