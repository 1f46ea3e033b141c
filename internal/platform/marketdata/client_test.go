package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stocks/AAPL", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"AAPL","currentPrice":187.25}`))
	})
	mux.HandleFunc("GET /api/mutual-funds/VFIAX", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"VFIAX","nav":512.3456}`))
	})
	mux.HandleFunc("GET /api/crypto/BTC", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"BTC"}`))
	})
	mux.HandleFunc("GET /api/history/AAPL", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1Y", r.URL.Query().Get("period"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(`{"data":[
			{"time":"2025-01-02","close":100.5},
			{"time":"2025-01-03","nav":12.25,"close":99},
			{"time":"2025-01-04"},
			{"close":1}
		]}`))
	})
	mux.HandleFunc("GET /api/stocks/BROKE", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestQuote(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	p, err := c.Quote(ctx, "aapl", domain.AssetStock)
	require.NoError(t, err)
	assert.Equal(t, "187.25", p.String())

	p, err = c.Quote(ctx, "VFIAX", domain.AssetMutualFund)
	require.NoError(t, err)
	assert.Equal(t, "512.3456", p.String())

	_, err = c.Quote(ctx, "BTC", domain.AssetCrypto)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.Quote(ctx, "MSFT", domain.AssetStock)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.Quote(ctx, "BROKE", domain.AssetStock)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "500")
}

func TestHistory(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second)

	points, err := c.History(context.Background(), "AAPL", "1y", "1D")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2025-01-02", points[0].Date)
	assert.Equal(t, "100.5", points[0].Price.String())
	assert.Equal(t, "12.25", points[1].Price.String())
}

func TestHistoryNotFound(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second)

	_, err := c.History(context.Background(), "ZZZ", "1Y", "1d")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
