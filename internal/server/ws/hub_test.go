package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// chanBus is an in-memory SignalBus keyed by channel.
type chanBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func newChanBus() *chanBus { return &chanBus{subs: map[string]chan []byte{}} }

func (b *chanBus) ch(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.subs[name]
	if !ok {
		c = make(chan []byte, 8)
		b.subs[name] = c
	}
	return c
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.ch(channel) <- payload
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	return b.ch(channel), nil
}

func (b *chanBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *chanBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestWrap(t *testing.T) {
	frame, err := wrap(domain.ChannelTrades, []byte(`{"symbol":"AAPL"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"portfolio.trades","payload":{"symbol":"AAPL"}}`, string(frame))

	_, err = wrap(domain.ChannelTrades, []byte("not json"))
	assert.Error(t, err)
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{domain.ChannelTrades: true}}
	assert.True(t, c.isSubscribed(domain.ChannelTrades))
	assert.False(t, c.isSubscribed(domain.ChannelWallet))

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"portfolio.*"}})
	assert.True(t, c.isSubscribed(domain.ChannelWallet))

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"portfolio.*", domain.ChannelTrades}})
	assert.False(t, c.isSubscribed(domain.ChannelTrades))
}

func TestCheckOrigin(t *testing.T) {
	h := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{AllowedOrigins: []string{"https://dash.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, h.checkOrigin(req))
	req.Header.Set("Origin", "https://dash.example.com")
	assert.True(t, h.checkOrigin(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, h.checkOrigin(req))
}

func TestHub_RelaysBusEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newChanBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Status: func(context.Context) (any, error) {
			return map[string]string{"balance": "100"}, nil
		},
	})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first envelope
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "portfolio.status", first.Type)

	require.NoError(t, bus.Publish(ctx, domain.ChannelWallet, []byte(`{"balance":"90"}`)))

	mt, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	var evt envelope
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, domain.ChannelWallet, evt.Type)
	assert.JSONEq(t, `{"balance":"90"}`, string(evt.Payload))
}
