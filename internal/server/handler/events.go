package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// StreamReader reads the durable event stream.
type StreamReader interface {
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error)
}

// EventsHandler replays trade events from the ledger stream so clients can
// catch up on what they missed while disconnected from /ws.
type EventsHandler struct {
	stream StreamReader
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(stream StreamReader, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{stream: stream, logger: logger}
}

type streamEvent struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// List returns up to count events after the given stream id.
// GET /api/events?after=0-0&count=100
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after := q.Get("after")
	if after == "" {
		after = "0-0"
	}
	count := 100
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid count "+strconv.Quote(v))
			return
		}
		count = min(n, 1000)
	}

	msgs, err := h.stream.StreamRead(r.Context(), domain.StreamLedger, after, count)
	if err != nil {
		writeServiceError(w, r, h.logger, "read events", err)
		return
	}
	out := make([]streamEvent, 0, len(msgs))
	for _, m := range msgs {
		if !json.Valid(m.Payload) {
			continue
		}
		out = append(out, streamEvent{ID: m.ID, Payload: m.Payload})
	}
	writeJSON(w, http.StatusOK, out)
}
