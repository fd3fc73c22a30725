package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

type HealthHandler struct {
	custody ports.WalletCustody
	version string
	started time.Time
	now     func() time.Time
}

func NewHealthHandler(custody ports.WalletCustody, version string) *HealthHandler {
	return &HealthHandler{
		custody: custody,
		version: version,
		started: time.Now(),
		now:     time.Now,
	}
}

type walletHealth struct {
	PublicKey  string         `json:"publicKey"`
	Balance    uint64         `json:"balance"`
	BalanceSOL float64        `json:"balanceSol"`
	Network    domain.Network `json:"network"`
}

type healthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    float64       `json:"uptime"`
	Version   string        `json:"version"`
	Wallet    *walletHealth `json:"wallet,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Health is unauthenticated. It reports 503 when the wallet balance cannot be
// read, since no sponsored transaction could be sent either.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: now,
		Uptime:    now.Sub(h.started).Seconds(),
		Version:   h.version,
	}

	balance, err := h.custody.Balance(r.Context())
	if err != nil {
		slog.WarnContext(r.Context(), "health check could not read wallet balance", "error", err)
		resp.Status = "unhealthy"
		resp.Error = "wallet balance unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Wallet = &walletHealth{
		PublicKey:  h.custody.Address(),
		Balance:    balance,
		BalanceSOL: domain.LamportsToSOL(balance),
		Network:    h.custody.Network(),
	}
	writeJSON(w, http.StatusOK, resp)
}
