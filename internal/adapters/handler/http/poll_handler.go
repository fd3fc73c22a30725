package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

type PollHandler struct {
	relay   ports.RelayService
	service ports.PollService
	now     func() time.Time
}

func NewPollHandler(relay ports.RelayService, service ports.PollService) *PollHandler {
	return &PollHandler{
		relay:   relay,
		service: service,
		now:     time.Now,
	}
}

type createPollRequest struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Creator     string   `json:"creator"`
	IsAnonymous bool     `json:"isAnonymous"`
	ExpiryDate  string   `json:"expiryDate"`
}

type createPollResponse struct {
	Success              bool            `json:"success"`
	PollID               uuid.UUID       `json:"pollId"`
	Poll                 domain.PollView `json:"poll"`
	TransactionSignature string          `json:"transactionSignature,omitempty"`
	BlockchainConfirmed  bool            `json:"blockchainConfirmed"`
	LocalOnly            bool            `json:"localOnly"`
}

type pollResponse struct {
	Success bool            `json:"success"`
	Poll    domain.PollView `json:"poll"`
}

type pollListResponse struct {
	Success bool              `json:"success"`
	Polls   []domain.PollView `json:"polls"`
	Count   int               `json:"count"`
}

type resultsResponse struct {
	Success bool                `json:"success"`
	Results *domain.PollResults `json:"results"`
}

type closePollRequest struct {
	CreatorAddress string `json:"creatorAddress"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.relay.HandleCreatePoll(r.Context(), ports.CreatePollInput{
		Question:    req.Question,
		Options:     req.Options,
		Creator:     req.Creator,
		IsAnonymous: req.IsAnonymous,
		ExpiryDate:  req.ExpiryDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPollResponse{
		Success:              true,
		PollID:               out.PollID,
		Poll:                 out.Poll.View(h.now()),
		TransactionSignature: out.Transaction.Signature,
		BlockchainConfirmed:  out.Transaction.Confirmed,
		LocalOnly:            out.Transaction.LocalOnly,
	})
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListPolls(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.list(polls))
}

func (h *PollHandler) ListByCreator(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListByCreator(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.list(polls))
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{Success: true, Poll: poll.View(h.now())})
}

func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Success: true, Results: results})
}

func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	var req closePollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := domain.ValidateAddress(req.CreatorAddress); err != nil {
		writeError(w, r, err)
		return
	}

	poll, err := h.service.Close(r.Context(), chi.URLParam(r, "id"), req.CreatorAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{Success: true, Poll: poll.View(h.now())})
}

func (h *PollHandler) list(polls []*domain.Poll) pollListResponse {
	now := h.now()
	views := make([]domain.PollView, 0, len(polls))
	for _, p := range polls {
		views = append(views, p.View(now))
	}
	return pollListResponse{Success: true, Polls: views, Count: len(views)}
}
