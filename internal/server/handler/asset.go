package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/alanyoungcy/pmsledger/internal/service"
)

// PositionService defines the methods the asset handler requires from the
// service layer.
type PositionService interface {
	BuyAsset(ctx context.Context, o service.BuyOrder) (domain.Position, error)
	SellAsset(ctx context.Context, symbol string, quantity int64) (service.SellResult, error)
	AddAsset(ctx context.Context, p domain.Position) (domain.Position, error)
	RemoveAsset(ctx context.Context, id int64) error
	UpdateQuantity(ctx context.Context, id int64, quantity int64) (domain.Position, error)
	UpdateCurrentPrice(ctx context.Context, symbol string, price decimal.Decimal) (domain.Position, error)
	GetAllAssets(ctx context.Context) ([]domain.Position, error)
	GetAssetByID(ctx context.Context, id int64) (domain.Position, error)
	CalculatePL(ctx context.Context, id int64) (decimal.Decimal, error)
	CalculatePLBySymbol(ctx context.Context, symbol string) (decimal.Decimal, error)
	CalculatePLPercentage(ctx context.Context, id int64) (decimal.Decimal, error)
	GetTotalPortfolioValue(ctx context.Context) (decimal.Decimal, error)
	RefreshMarks(ctx context.Context) (int, error)
}

// AssetHandler serves position endpoints.
type AssetHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewAssetHandler creates an AssetHandler.
func NewAssetHandler(positions PositionService, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{positions: positions, logger: logger}
}

// ListAssets returns every position in insertion order.
// GET /api/assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positions.GetAllAssets(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list assets", err)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// GetAsset returns one position.
// GET /api/assets/{id}
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.positions.GetAssetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get asset", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type addAssetRequest struct {
	Symbol       string           `json:"symbol"`
	CompanyName  string           `json:"companyName"`
	Quantity     int64            `json:"quantity"`
	AverageCost  decimal.Decimal  `json:"averageCost"`
	CurrentPrice decimal.Decimal  `json:"currentPrice"`
	AssetType    domain.AssetType `json:"assetType"`
}

// AddAsset records a position directly without touching the wallet.
// POST /api/assets
func (h *AssetHandler) AddAsset(w http.ResponseWriter, r *http.Request) {
	var req addAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := h.positions.AddAsset(r.Context(), domain.Position{
		Symbol:       req.Symbol,
		CompanyName:  req.CompanyName,
		Quantity:     req.Quantity,
		AverageCost:  req.AverageCost,
		CurrentPrice: req.CurrentPrice,
		AssetType:    req.AssetType,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "add asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// RemoveAsset deletes a position without touching the wallet.
// DELETE /api/assets/{id}
func (h *AssetHandler) RemoveAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.positions.RemoveAsset(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "remove asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateQuantity overwrites a position's quantity.
// PUT /api/assets/{id}/quantity  {"quantity": 12}
func (h *AssetHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := h.positions.UpdateQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		writeServiceError(w, r, h.logger, "update quantity", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePrice sets the mark for a held symbol.
// PUT /api/assets/{symbol}/price  {"price": "187.25"}
func (h *AssetHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := h.positions.UpdateCurrentPrice(r.Context(), r.PathValue("symbol"), req.Price)
	if err != nil {
		writeServiceError(w, r, h.logger, "update price", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ProfitLoss returns the unrealised profit or loss of a position.
// GET /api/assets/{id}/pl
func (h *AssetHandler) ProfitLoss(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pl, err := h.positions.CalculatePL(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "calculate pl", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "profitLoss": pl})
}

// ProfitLossBySymbol is ProfitLoss keyed by ticker.
// GET /api/assets/symbol/{symbol}/pl
func (h *AssetHandler) ProfitLossBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	pl, err := h.positions.CalculatePLBySymbol(r.Context(), symbol)
	if err != nil {
		writeServiceError(w, r, h.logger, "calculate pl", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": domain.NormalizeSymbol(symbol), "profitLoss": pl})
}

// ProfitLossPercentage returns the profit or loss relative to cost.
// GET /api/assets/{id}/pl-percentage
func (h *AssetHandler) ProfitLossPercentage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pct, err := h.positions.CalculatePLPercentage(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "calculate pl percentage", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "percentage": pct})
}

// TotalValue returns the marked value of all positions.
// GET /api/assets/total-value
func (h *AssetHandler) TotalValue(w http.ResponseWriter, r *http.Request) {
	v, err := h.positions.GetTotalPortfolioValue(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "total value", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totalValue": v})
}

// Buy debits the wallet and opens or grows a position.
// POST /api/assets/buy
func (h *AssetHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req service.BuyOrder
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := h.positions.BuyAsset(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, "buy asset", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Sell reduces or closes a position at its current mark.
// POST /api/assets/sell  {"symbol": "AAPL", "quantity": 5}
func (h *AssetHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol   string `json:"symbol"`
		Quantity int64  `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := h.positions.SellAsset(r.Context(), req.Symbol, req.Quantity)
	if err != nil {
		writeServiceError(w, r, h.logger, "sell asset", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RefreshMarks pulls fresh quotes for every held symbol.
// POST /api/assets/refresh-marks
func (h *AssetHandler) RefreshMarks(w http.ResponseWriter, r *http.Request) {
	n, err := h.positions.RefreshMarks(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "refresh marks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
