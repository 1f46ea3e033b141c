package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

// TransactionArchiveStore is the read side of the transaction log the
// archiver needs.
type TransactionArchiveStore interface {
	// FindBefore returns every transaction with a timestamp strictly before
	// the cutoff, in id order.
	FindBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error)
}

// ArchiveImpl implements domain.Archiver by exporting the transaction log to
// JSONL in object storage.
//
// Archived transactions stay in the primary store. The log is append-only
// and remains the source of truth; the archive is a cold copy.
type ArchiveImpl struct {
	writer       domain.BlobWriter
	transactions TransactionArchiveStore
	audit        domain.AuditStore // optional
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	transactions TransactionArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:       writer,
		transactions: transactions,
		audit:        audit,
	}
}

// ArchiveTransactions exports all transactions before the cutoff to
// archive/transactions/YYYY-MM.jsonl and returns how many were written. An
// existing file for the same month is replaced.
func (a *ArchiveImpl) ArchiveTransactions(ctx context.Context, before time.Time) (int64, error) {
	txs, err := a.transactions.FindBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions query: %w", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(txs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions marshal: %w", err)
	}

	path := archivePath("transactions", before)
	if err := a.writer.Upload(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions upload: %w", err)
	}

	count := int64(len(txs))
	if a.audit == nil {
		return count, nil
	}
	if err := a.audit.Log(ctx, "archive.transactions", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive transactions audit log: %w", err)
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/transactions/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
