package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

type fakeStream struct {
	msgs      []domain.StreamMessage
	err       error
	gotStream string
	gotAfter  string
	gotCount  int
}

func (f *fakeStream) StreamRead(_ context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	f.gotStream, f.gotAfter, f.gotCount = stream, lastID, count
	return f.msgs, f.err
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestEvents_List(t *testing.T) {
	fs := &fakeStream{msgs: []domain.StreamMessage{
		{ID: "1-0", Payload: []byte(`{"symbol":"AAPL"}`)},
		{ID: "2-0", Payload: []byte(`garbage`)},
	}}
	h := NewEventsHandler(fs, discardLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/events?after=0-5&count=5000", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, domain.StreamLedger, fs.gotStream)
	assert.Equal(t, "0-5", fs.gotAfter)
	assert.Equal(t, 1000, fs.gotCount)

	var out []streamEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "1-0", out[0].ID)
}

func TestEvents_Errors(t *testing.T) {
	h := NewEventsHandler(&fakeStream{err: errors.New("boom")}, discardLogger())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/events?count=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to read events")
}
