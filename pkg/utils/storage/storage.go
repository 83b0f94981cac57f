package storage

import (
	"context"
	"errors"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps uploaded image bytes. Put returns a reference that can be
// stored on the record and later passed to Delete.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}
