package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

type VoteHandler struct {
	relay ports.RelayService
}

func NewVoteHandler(relay ports.RelayService) *VoteHandler {
	return &VoteHandler{
		relay: relay,
	}
}

type voteRequest struct {
	VoterPublicKey string `json:"voterPublicKey"`
	PollID         string `json:"pollId"`
	VoteChoice     *int   `json:"voteChoice"`
}

type pollVoteRequest struct {
	VoterAddress string `json:"voterAddress"`
	OptionIndex  *int   `json:"optionIndex"`
}

type voteResponse struct {
	Success              bool       `json:"success"`
	Message              string     `json:"message"`
	TransactionSignature string     `json:"transactionSignature,omitempty"`
	BlockchainConfirmed  bool       `json:"blockchainConfirmed"`
	LocalOnly            bool       `json:"localOnly"`
	RemainingVotes       int        `json:"remainingVotes"`
	ResetTime            *time.Time `json:"resetTime"`
}

func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.handle(w, r, ports.VoteRequest{
		VoterPublicKey: req.VoterPublicKey,
		PollID:         req.PollID,
		VoteChoice:     req.VoteChoice,
	})
}

// VoteOnPoll takes the poll from the path instead of the body.
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	var req pollVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.handle(w, r, ports.VoteRequest{
		VoterPublicKey: req.VoterAddress,
		PollID:         chi.URLParam(r, "id"),
		VoteChoice:     req.OptionIndex,
	})
}

func (h *VoteHandler) handle(w http.ResponseWriter, r *http.Request, req ports.VoteRequest) {
	out, err := h.relay.HandleVote(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{
		Success:              out.Success,
		Message:              out.Message,
		TransactionSignature: out.Transaction.Signature,
		BlockchainConfirmed:  out.Transaction.Confirmed,
		LocalOnly:            out.Transaction.LocalOnly,
		RemainingVotes:       out.RemainingVotes,
		ResetTime:            out.ResetTime,
	})
}
