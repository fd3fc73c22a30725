package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

const apiKeyHeader = "X-API-Key"

type RouterConfig struct {
	// APIKey guards every route except /health. Empty rejects every request.
	APIKey           string
	AllowedOrigins   []string
	PollCreateLimit  int
	PollCreateWindow time.Duration
	VoteLimit        int
	VoteWindow       time.Duration
}

type Handlers struct {
	Polls  *PollHandler
	Votes  *VoteHandler
	Wallet *WalletHandler
	Voters *VoterHandler
	Health *HealthHandler
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.PollCreateLimit <= 0 {
		c.PollCreateLimit = 10
	}
	if c.PollCreateWindow <= 0 {
		c.PollCreateWindow = 15 * time.Minute
	}
	if c.VoteLimit <= 0 {
		c.VoteLimit = 50
	}
	if c.VoteWindow <= 0 {
		c.VoteWindow = 5 * time.Minute
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	return c
}

func NewHandler(h Handlers, cfg RouterConfig) http.Handler {
	cfg = cfg.withDefaults()
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", apiKeyHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Endpoint not found", Code: "NOT_FOUND"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
	})

	r.Get("/health", h.Health.Health)

	createLimiter := ipLimiter(cfg.PollCreateLimit, cfg.PollCreateWindow)
	// One limiter instance so both vote routes draw on the same budget.
	voteLimiter := ipLimiter(cfg.VoteLimit, cfg.VoteWindow)

	r.Group(func(r chi.Router) {
		r.Use(requireAPIKey(cfg.APIKey))

		r.With(voteLimiter).Post("/vote", h.Votes.Vote)

		r.Route("/polls", func(r chi.Router) {
			r.Get("/", h.Polls.ListPolls)
			r.With(createLimiter).Post("/", h.Polls.CreatePoll)
			r.Get("/creator/{address}", h.Polls.ListByCreator)
			r.Get("/{id}", h.Polls.GetPoll)
			r.Get("/{id}/results", h.Polls.Results)
			r.Post("/{id}/close", h.Polls.ClosePoll)
			r.With(voteLimiter).Post("/{id}/vote", h.Votes.VoteOnPoll)
		})

		r.Get("/solana/wallet", h.Wallet.Info)
		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", h.Wallet.Info)
			r.Get("/balance", h.Wallet.Balance)
			r.Post("/airdrop", h.Wallet.Airdrop)
			r.Get("/funding-status", h.Wallet.FundingStatus)
		})

		r.Get("/transactions/{signature}", h.Wallet.TransactionStatus)
		r.Get("/transaction/{signature}", h.Wallet.TransactionStatus)
		r.Get("/voters/{address}/stats", h.Voters.Stats)
	})

	return r
}

func ipLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: "Too many requests from this IP, please try again later",
				Code:  "IP_RATE_LIMITED",
			})
		}),
	)
}

func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(apiKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid or missing API key", Code: "INVALID_API_KEY"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
