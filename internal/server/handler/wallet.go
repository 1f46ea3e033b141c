package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// WalletService defines the wallet operations exposed over HTTP.
type WalletService interface {
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	AddMoney(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	DeductMoney(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	GetWalletSummary(ctx context.Context) (domain.WalletSummary, error)
}

// WalletHandler serves wallet endpoints.
type WalletHandler struct {
	wallet WalletService
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallet: wallet, logger: logger}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Balance returns the current cash balance.
// GET /api/wallet/balance
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	b, err := h.wallet.GetBalance(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": b})
}

// Add credits the wallet.
// POST /api/wallet/add  {"amount": "250.00"}
func (h *WalletHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "add money", h.wallet.AddMoney)
}

// Deduct debits the wallet.
// POST /api/wallet/deduct  {"amount": "250.00"}
func (h *WalletHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "deduct money", h.wallet.DeductMoney)
}

func (h *WalletHandler) move(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, decimal.Decimal) (decimal.Decimal, error)) {
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	b, err := fn(r.Context(), req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": b})
}

// Summary returns balance, invested and market value, and net worth.
// GET /api/wallet/summary
func (h *WalletHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.wallet.GetWalletSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "wallet summary", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
