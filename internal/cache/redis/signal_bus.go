package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen caps the ledger stream when no limit is configured.
const DefaultStreamMaxLen int64 = 10000

// streamField is the stream entry field holding the JSON event.
const streamField = "event"

// SignalBus implements domain.SignalBus. Wallet, trade and price events go
// out over Pub/Sub for live subscribers such as the websocket hub; fills are
// also appended to the ledger stream so /api/events can replay them.
// Channel and stream names are namespaced like every other key.
type SignalBus struct {
	rdb    *redis.Client
	keys   keyspace
	maxLen int64
}

// NewSignalBus creates a SignalBus. Streams are trimmed to roughly maxLen
// entries; maxLen <= 0 uses DefaultStreamMaxLen.
func NewSignalBus(c *Client, maxLen int64) *SignalBus {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &SignalBus{rdb: c.rdb, keys: c.keys, maxLen: maxLen}
}

// Publish sends one event to the live subscribers of channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, sb.keys.key(channel), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on channel, which may be a glob such as "portfolio.*".
// The returned channel closes when ctx is done or the subscription drops.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	name := sb.keys.key(channel)
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = sb.rdb.PSubscribe(ctx, name)
	} else {
		pubsub = sb.rdb.Subscribe(ctx, name)
	}
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go relay(ctx, pubsub, out)
	return out, nil
}

// relay copies message payloads from pubsub to out until ctx is done.
func relay(ctx context.Context, pubsub *redis.PubSub, out chan<- []byte) {
	defer close(out)
	defer pubsub.Close()

	in := pubsub.Channel(redis.WithChannelSize(cap(out)))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// StreamAppend adds one event to the named stream, trimming it approximately
// to the configured length.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := sb.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: sb.keys.key(stream),
		MaxLen: sb.maxLen,
		Approx: true,
		Values: map[string]any{streamField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// StreamRead returns up to count events recorded after lastID ("0-0" reads
// from the start). It never blocks; an exhausted stream yields no messages
// and no error.
func (sb *SignalBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	results, err := sb.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{sb.keys.key(stream), lastID},
		Count:   int64(count),
		Block:   -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	var out []domain.StreamMessage
	for _, s := range results {
		out = append(out, decodeEntries(s.Messages)...)
	}
	return out, nil
}

// decodeEntries keeps the entries that carry an event field.
func decodeEntries(entries []redis.XMessage) []domain.StreamMessage {
	out := make([]domain.StreamMessage, 0, len(entries))
	for _, e := range entries {
		var data []byte
		switch v := e.Values[streamField].(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			continue
		}
		out = append(out, domain.StreamMessage{ID: e.ID, Payload: data})
	}
	return out
}

var _ domain.SignalBus = (*SignalBus)(nil)
