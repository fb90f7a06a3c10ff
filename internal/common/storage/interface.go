package storage

import (
	"context"
	"io"
)

// ObjectStorage is the object store surface used for judge report archives.
type ObjectStorage interface {
	// PutObject uploads size bytes from reader. A negative size streams until EOF.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// GetObject opens a reader for an object.
	// Caller must close the returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)

	// StatObject returns size and ETag for an object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)

	// EnsureBucket creates bucket when it does not exist.
	EnsureBucket(ctx context.Context, bucket string) error
}

// ObjectStat contains object metadata.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}
