package redis

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

func TestKeys(t *testing.T) {
	keys := keyspace("pms")
	assert.Equal(t, "pms:price:AAPL", (&PriceCache{keys: keys}).key(" aapl "))
	assert.Equal(t, "pms:lock:portfolio", (&LockManager{keys: keys}).key("portfolio"))
	assert.Equal(t, "pms:ratelimit:ip:10.0.0.1", (&RateLimiter{keys: keys}).key("ip:10.0.0.1"))
	assert.Equal(t, "pms:portfolio.ledger", keys.key(domain.StreamLedger))
}

func TestDecodeEntries(t *testing.T) {
	got := decodeEntries([]redis.XMessage{
		{ID: "1-0", Values: map[string]any{"event": `{"symbol":"AAPL"}`}},
		{ID: "2-0", Values: map[string]any{"other": "x"}},
		{ID: "3-0", Values: map[string]any{"event": []byte(`{}`)}},
		{ID: "4-0", Values: map[string]any{"event": 7}},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "1-0", got[0].ID)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, string(got[0].Payload))
	assert.Equal(t, "3-0", got[1].ID)
}

func TestNewSignalBus_DefaultsMaxLen(t *testing.T) {
	c := &Client{keys: keyspace(DefaultNamespace)}
	assert.Equal(t, DefaultStreamMaxLen, NewSignalBus(c, 0).maxLen)
	assert.Equal(t, int64(50), NewSignalBus(c, 50).maxLen)
}

func TestParseMark(t *testing.T) {
	ts := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	price, at, err := parseMark(map[string]string{
		"price": "187.25",
		"ts":    "1748770200000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "187.25", price.String())
	assert.True(t, ts.Equal(at))

	_, _, err = parseMark(map[string]string{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = parseMark(map[string]string{"price": "187.25"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = parseMark(map[string]string{"price": "abc", "ts": "1"})
	assert.Error(t, err)
}

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("portfolio.*"))
	assert.False(t, hasPattern(domain.ChannelTrades))
}

func TestSlidingWindowScriptEmbedded(t *testing.T) {
	assert.Contains(t, slidingWindowLua, "ZREMRANGEBYSCORE")
}
