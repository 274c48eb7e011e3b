package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, key string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// BlobDeleter removes objects from object storage.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Archiver exports old price observations from the database to cold storage.
// It never deletes the archived rows; that is a separate, explicit step.
type Archiver interface {
	ArchiveObservations(ctx context.Context, before time.Time) (int64, error)
}
