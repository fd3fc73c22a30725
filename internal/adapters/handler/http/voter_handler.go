package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

type VoterHandler struct {
	guard           ports.VoterGuard
	receiptLamports uint64
}

func NewVoterHandler(guard ports.VoterGuard, receiptLamports uint64) *VoterHandler {
	return &VoterHandler{
		guard:           guard,
		receiptLamports: receiptLamports,
	}
}

type feeInfo struct {
	Sponsored       bool   `json:"sponsored"`
	ReceiptLamports uint64 `json:"receiptLamports"`
}

type voterStatsResponse struct {
	Success   bool                   `json:"success"`
	Identity  *domain.VoterRecord    `json:"identity"`
	RateLimit domain.RateLimitStatus `json:"rateLimit"`
	FeeInfo   feeInfo                `json:"feeInfo"`
}

func (h *VoterHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.guard.Stats(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voterStatsResponse{
		Success:   true,
		Identity:  stats.Identity,
		RateLimit: stats.RateLimit,
		FeeInfo:   feeInfo{Sponsored: true, ReceiptLamports: h.receiptLamports},
	})
}
