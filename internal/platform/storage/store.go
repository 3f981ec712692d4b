package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned when the requested object does not exist.
	ErrObjectNotFound = errors.New("storage: object not found")
	errInvalidBucket  = errors.New("storage: bucket name is required")
	errInvalidObject  = errors.New("storage: object name is required")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket      string
	Name        string
	ContentType string
	Size        int64
	UpdatedAt   time.Time
}

// ObjectStore abstracts blob storage used for uploaded photos and rendered compositions.
type ObjectStore interface {
	Write(ctx context.Context, bucket, object, contentType string, data io.Reader) (ObjectInfo, error)
	Read(ctx context.Context, bucket, object string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, bucket, object string) error
	SignedDownloadURL(ctx context.Context, bucket, object string, expiresIn time.Duration) (string, time.Time, error)
}
