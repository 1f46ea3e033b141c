package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/alanyoungcy/pmsledger/internal/server/handler"
	"github.com/alanyoungcy/pmsledger/internal/server/middleware"
	"github.com/alanyoungcy/pmsledger/internal/server/ws"
)

// healthPath is served without authentication.
const healthPath = "/api/health"

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// Verifier checks API keys. Nil disables authentication.
	Verifier middleware.KeyVerifier
	// Limiter enables per-client rate limiting when non-nil.
	Limiter    domain.RateLimiter
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health       *handler.HealthHandler
	Status       *handler.StatusHandler
	Assets       *handler.AssetHandler
	Wallet       *handler.WalletHandler
	Transactions *handler.TransactionHandler
	Portfolio    *handler.PortfolioHandler
	Audit        *handler.AuditHandler
	// Events is optional; it needs the durable event stream.
	Events *handler.EventsHandler
}

// Server is the HTTP + WebSocket API of the portfolio ledger.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. wsHub may be nil,
// in which case /ws is not served.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewHandler(cfg, handlers, wsHub, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+healthPath, handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	a := handlers.Assets
	mux.HandleFunc("GET /api/assets", a.ListAssets)
	mux.HandleFunc("POST /api/assets", a.AddAsset)
	mux.HandleFunc("GET /api/assets/total-value", a.TotalValue)
	mux.HandleFunc("POST /api/assets/buy", a.Buy)
	mux.HandleFunc("POST /api/assets/sell", a.Sell)
	mux.HandleFunc("POST /api/assets/refresh-marks", a.RefreshMarks)
	mux.HandleFunc("GET /api/assets/{id}", a.GetAsset)
	mux.HandleFunc("DELETE /api/assets/{id}", a.RemoveAsset)
	mux.HandleFunc("PUT /api/assets/{id}/quantity", a.UpdateQuantity)
	mux.HandleFunc("PUT /api/assets/{symbol}/price", a.UpdatePrice)
	mux.HandleFunc("GET /api/assets/{id}/pl", a.ProfitLoss)
	mux.HandleFunc("GET /api/assets/{id}/pl-percentage", a.ProfitLossPercentage)
	mux.HandleFunc("GET /api/assets/symbol/{symbol}/pl", a.ProfitLossBySymbol)

	wl := handlers.Wallet
	mux.HandleFunc("GET /api/wallet/balance", wl.Balance)
	mux.HandleFunc("POST /api/wallet/add", wl.Add)
	mux.HandleFunc("POST /api/wallet/deduct", wl.Deduct)
	mux.HandleFunc("GET /api/wallet/summary", wl.Summary)

	tx := handlers.Transactions
	mux.HandleFunc("POST /api/transactions", tx.Create)
	mux.HandleFunc("GET /api/transactions", tx.List)
	mux.HandleFunc("GET /api/transactions/symbol/{symbol}", tx.ListBySymbol)
	mux.HandleFunc("GET /api/transactions/{id}", tx.Get)
	mux.HandleFunc("PUT /api/transactions/{id}", tx.Update)
	mux.HandleFunc("DELETE /api/transactions/{id}", tx.Delete)

	p := handlers.Portfolio
	mux.HandleFunc("GET /api/portfolio/summary", p.Summary)
	mux.HandleFunc("GET /api/portfolio/performance", p.Performance)
	mux.HandleFunc("GET /api/portfolio/allocation", p.Allocation)
	mux.HandleFunc("GET /api/portfolio/breakdown", p.Breakdown)
	mux.HandleFunc("GET /api/portfolio/performers", p.Performers)

	mux.HandleFunc("GET /api/audit", handlers.Audit.List)
	if handlers.Events != nil {
		mux.HandleFunc("GET /api/events", handlers.Events.List)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Outermost first: CORS, logging, rate limit, auth.
	var h http.Handler = mux
	h = middleware.Auth(cfg.Verifier, healthPath)(h)
	if cfg.Limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(cfg.Limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Logging(logger, healthPath)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
