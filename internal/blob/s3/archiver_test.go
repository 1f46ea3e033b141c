package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmsledger/internal/domain"
	"github.com/alanyoungcy/pmsledger/internal/store/memory"
)

type upload struct {
	path        string
	contentType string
	body        []byte
}

type fakeWriter struct {
	puts []upload
	err  error
}

func (w *fakeWriter) Upload(_ context.Context, path string, body []byte, contentType string) error {
	if w.err != nil {
		return w.err
	}
	w.puts = append(w.puts, upload{path: path, contentType: contentType, body: body})
	return nil
}

func seedLog(t *testing.T, store *memory.Store, stamps ...time.Time) {
	t.Helper()
	for i, ts := range stamps {
		_, err := store.Transactions().Save(context.Background(), domain.Transaction{
			Symbol:    "AAPL",
			Quantity:  int64(i + 1),
			Price:     decimal.RequireFromString("100.5"),
			Type:      domain.TransactionBuy,
			Timestamp: ts,
		})
		require.NoError(t, err)
	}
}

func TestArchiveTransactions(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	audit := memory.NewAuditStore()
	cutoff := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	seedLog(t, store,
		cutoff.Add(-48*time.Hour),
		cutoff.Add(-time.Hour),
		cutoff,
		cutoff.Add(time.Hour),
	)

	w := &fakeWriter{}
	n, err := NewArchiver(w, store.Transactions(), audit).ArchiveTransactions(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, w.puts, 1)
	put := w.puts[0]
	assert.Equal(t, "archive/transactions/2025-02.jsonl", put.path)
	assert.Equal(t, "application/x-ndjson", put.contentType)

	var lines []domain.Transaction
	sc := bufio.NewScanner(bytes.NewReader(put.body))
	for sc.Scan() {
		var tx domain.Transaction
		require.NoError(t, json.Unmarshal(sc.Bytes(), &tx))
		lines = append(lines, tx)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].ID)
	assert.Equal(t, "100.5", lines[0].Price.String())

	all, err := store.Transactions().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4, "archiving never removes transactions")

	entries, err := audit.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "archive.transactions", entries[0].Event)
}

func TestArchiveTransactions_NothingToArchive(t *testing.T) {
	w := &fakeWriter{}
	n, err := NewArchiver(w, memory.New().Transactions(), nil).
		ArchiveTransactions(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.puts)
}

func TestArchiveTransactions_UploadFailure(t *testing.T) {
	store := memory.New()
	seedLog(t, store, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))

	w := &fakeWriter{err: errors.New("bucket gone")}
	_, err := NewArchiver(w, store.Transactions(), nil).
		ArchiveTransactions(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestClientKeys(t *testing.T) {
	bare := &Client{}
	assert.Equal(t, "archive/transactions/2025-01.jsonl", bare.objectKey("archive/transactions/2025-01.jsonl"))

	c := &Client{prefix: "ledger-a"}
	key := c.objectKey("archive/transactions/2025-01.jsonl")
	assert.Equal(t, "ledger-a/archive/transactions/2025-01.jsonl", key)
	assert.Equal(t, "archive/transactions/2025-01.jsonl", c.archiveKey(key))
	assert.Equal(t, "ledger-a/archive/", c.objectKey("/archive/"))
}

func TestMultipartThreshold(t *testing.T) {
	assert.False(t, multipart(1024))
	assert.False(t, multipart(multipartThreshold))
	assert.True(t, multipart(multipartThreshold+1))
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("s3.example.com", true))
	assert.Equal(t, "http://s3.example.com", normaliseEndpoint("s3.example.com", false))
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("http://localhost:9000", true))
}
