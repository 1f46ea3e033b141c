package domain

import (
	"context"
	"time"
)

// BlobWriter stores archive files in object storage.
type BlobWriter interface {
	// Upload stores body at path, replacing any existing object.
	Upload(ctx context.Context, path string, body []byte, contentType string) error
}

// Archiver copies old ledger data to cold storage.
type Archiver interface {
	ArchiveTransactions(ctx context.Context, before time.Time) (int64, error)
}

// BlobInfo describes one stored object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// BlobLister enumerates stored objects under a prefix.
type BlobLister interface {
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}
