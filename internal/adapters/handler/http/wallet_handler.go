package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

const (
	minAirdropLamports     = 1_000_000
	maxAirdropLamports     = 2 * domain.LamportsPerSOL
	defaultAirdropLamports = domain.LamportsPerSOL
)

type WalletHandler struct {
	custody   ports.WalletCustody
	monitor   ports.BalanceMonitor
	submitter ports.TransactionSubmitter
	rpcURL    string
	minimum   uint64
	target    uint64
}

type WalletHandlerConfig struct {
	RPCURL         string
	MinimumBalance uint64
	TargetBalance  uint64
}

func NewWalletHandler(custody ports.WalletCustody, monitor ports.BalanceMonitor, submitter ports.TransactionSubmitter, cfg WalletHandlerConfig) *WalletHandler {
	return &WalletHandler{
		custody:   custody,
		monitor:   monitor,
		submitter: submitter,
		rpcURL:    cfg.RPCURL,
		minimum:   cfg.MinimumBalance,
		target:    cfg.TargetBalance,
	}
}

type walletInfoResponse struct {
	Success    bool           `json:"success"`
	PublicKey  string         `json:"publicKey"`
	Balance    uint64         `json:"balance"`
	BalanceSOL float64        `json:"balanceSol"`
	Network    domain.Network `json:"network"`
	RPCURL     string         `json:"rpcUrl,omitempty"`
}

type balanceResponse struct {
	Success        bool                `json:"success"`
	Balance        uint64              `json:"balance"`
	BalanceSOL     float64             `json:"balanceSol"`
	HasEnoughFunds bool                `json:"hasEnoughFunds"`
	Health         domain.WalletHealth `json:"health"`
	Message        string              `json:"message"`
}

type airdropRequest struct {
	Lamports *uint64 `json:"lamports"`
}

type airdropResponse struct {
	Success   bool    `json:"success"`
	Signature string  `json:"signature"`
	Lamports  uint64  `json:"lamports"`
	AmountSOL float64 `json:"amountSol"`
}

type transactionStatusResponse struct {
	Success bool `json:"success"`
	*domain.TxStatus
}

func (h *WalletHandler) Info(w http.ResponseWriter, r *http.Request) {
	balance, err := h.custody.Balance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, walletInfoResponse{
		Success:    true,
		PublicKey:  h.custody.Address(),
		Balance:    balance,
		BalanceSOL: domain.LamportsToSOL(balance),
		Network:    h.custody.Network(),
		RPCURL:     h.rpcURL,
	})
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.custody.Balance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	health := domain.ClassifyBalance(balance, h.minimum, h.target)
	message := "Wallet has sufficient funds"
	switch health {
	case domain.WalletCritical:
		message = fmt.Sprintf("Wallet balance is below the %.2f SOL minimum", domain.LamportsToSOL(h.minimum))
	case domain.WalletWarning:
		message = fmt.Sprintf("Wallet balance is below the %.2f SOL target", domain.LamportsToSOL(h.target))
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		Success:        true,
		Balance:        balance,
		BalanceSOL:     domain.LamportsToSOL(balance),
		HasEnoughFunds: health != domain.WalletCritical,
		Health:         health,
		Message:        message,
	})
}

func (h *WalletHandler) Airdrop(w http.ResponseWriter, r *http.Request) {
	var req airdropRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	lamports := uint64(defaultAirdropLamports)
	if req.Lamports != nil {
		lamports = *req.Lamports
	}
	if lamports < minAirdropLamports || lamports > maxAirdropLamports {
		writeError(w, r, &domain.ValidationError{Errors: []string{
			fmt.Sprintf("Airdrop amount must be between %d and %d lamports", minAirdropLamports, maxAirdropLamports),
		}})
		return
	}

	sig, err := h.monitor.ForceFund(r.Context(), lamports)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, airdropResponse{
		Success:   true,
		Signature: sig,
		Lamports:  lamports,
		AmountSOL: domain.LamportsToSOL(lamports),
	})
}

func (h *WalletHandler) FundingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.monitor.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *WalletHandler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.submitter.Status(r.Context(), chi.URLParam(r, "signature"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionStatusResponse{Success: true, TxStatus: status})
}
