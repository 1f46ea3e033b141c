package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/pmsledger/internal/domain"
)

const (
	// partSize is the multipart chunk size, the S3 minimum.
	partSize int64 = 5 * 1024 * 1024

	// multipartThreshold is the archive size above which the uploader splits
	// the body into parts.
	multipartThreshold = 8 * 1024 * 1024
)

// Writer stores archive files in the bucket.
type Writer struct {
	c *Client
}

// NewWriter creates a Writer over c.
func NewWriter(c *Client) *Writer {
	return &Writer{c: c}
}

// Upload stores body at path, replacing an earlier archive of the same
// month. Large archives go through the multipart uploader.
func (w *Writer) Upload(ctx context.Context, path string, body []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(w.c.bucket),
		Key:         aws.String(w.c.objectKey(path)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}

	var err error
	if multipart(len(body)) {
		_, err = w.c.uploader.Upload(ctx, in)
	} else {
		_, err = w.c.api.PutObject(ctx, in)
	}
	if err != nil {
		return fmt.Errorf("s3blob: upload %s (%d bytes): %w", path, len(body), err)
	}
	return nil
}

func multipart(size int) bool {
	return size > multipartThreshold
}

var _ domain.BlobWriter = (*Writer)(nil)
