package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pmsledger/internal/valuation"
)

// PortfolioService defines the read-only portfolio views.
type PortfolioService interface {
	Summary(ctx context.Context) (valuation.Summary, error)
	Allocation(ctx context.Context) ([]valuation.Slice, error)
	Breakdown(ctx context.Context) ([]valuation.Slice, error)
	Performers(ctx context.Context) (valuation.Performers, error)
	Performance(ctx context.Context) ([]valuation.PerformancePoint, error)
}

// PortfolioHandler serves the aggregate portfolio views.
type PortfolioHandler struct {
	portfolio PortfolioService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(portfolio PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio, logger: logger}
}

// Summary handles GET /api/portfolio/summary.
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.portfolio.Summary(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "portfolio summary", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Allocation handles GET /api/portfolio/allocation.
func (h *PortfolioHandler) Allocation(w http.ResponseWriter, r *http.Request) {
	s, err := h.portfolio.Allocation(r.Context())
	writeSlices(w, r, h.logger, "portfolio allocation", s, err)
}

// Breakdown handles GET /api/portfolio/breakdown.
func (h *PortfolioHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	s, err := h.portfolio.Breakdown(r.Context())
	writeSlices(w, r, h.logger, "portfolio breakdown", s, err)
}

func writeSlices(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, s []valuation.Slice, err error) {
	if err != nil {
		writeServiceError(w, r, logger, op, err)
		return
	}
	if s == nil {
		s = []valuation.Slice{}
	}
	writeJSON(w, http.StatusOK, s)
}

// Performers handles GET /api/portfolio/performers.
func (h *PortfolioHandler) Performers(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolio.Performers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "portfolio performers", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Performance handles GET /api/portfolio/performance.
func (h *PortfolioHandler) Performance(w http.ResponseWriter, r *http.Request) {
	points, err := h.portfolio.Performance(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "portfolio performance", err)
		return
	}
	if points == nil {
		points = []valuation.PerformancePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}
