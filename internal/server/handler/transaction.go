package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// TransactionService defines the transaction-log operations exposed over HTTP.
type TransactionService interface {
	AddTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]domain.Transaction, error)
	GetTransactionsBySymbol(ctx context.Context, symbol string) ([]domain.Transaction, error)
	GetTransactionByID(ctx context.Context, id int64) (domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, t domain.Transaction) (domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// TransactionHandler serves transaction endpoints. Writes here correct the
// log only; they never move cash or positions.
type TransactionHandler struct {
	txlog  TransactionService
	logger *slog.Logger
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(txlog TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{txlog: txlog, logger: logger}
}

// Create appends a transaction.
// POST /api/transactions
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.Transaction
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.ID = 0
	t, err := h.txlog.AddTransaction(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, "add transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// List returns every transaction in insertion order.
// GET /api/transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	txs, err := h.txlog.GetAllTransactions(r.Context())
	h.writeList(w, r, "list transactions", txs, err)
}

// ListBySymbol returns the transactions of one symbol in insertion order.
// GET /api/transactions/symbol/{symbol}
func (h *TransactionHandler) ListBySymbol(w http.ResponseWriter, r *http.Request) {
	txs, err := h.txlog.GetTransactionsBySymbol(r.Context(), r.PathValue("symbol"))
	h.writeList(w, r, "list transactions", txs, err)
}

func (h *TransactionHandler) writeList(w http.ResponseWriter, r *http.Request, op string, txs []domain.Transaction, err error) {
	if err != nil {
		writeServiceError(w, r, h.logger, op, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// Get returns one transaction.
// GET /api/transactions/{id}
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.txlog.GetTransactionByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update replaces the fields of a transaction, keeping its id.
// PUT /api/transactions/{id}
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req domain.Transaction
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := h.txlog.UpdateTransaction(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, "update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Delete removes a transaction.
// DELETE /api/transactions/{id}
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.txlog.DeleteTransaction(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
