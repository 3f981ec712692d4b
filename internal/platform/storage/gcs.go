package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const defaultSignedURLExpiry = 15 * time.Minute

// GCSStore implements ObjectStore backed by Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	signer Signer
	now    func() time.Time
}

// GCSOption customises the GCSStore behaviour.
type GCSOption func(*GCSStore)

// WithSigner configures the signer used to mint signed download URLs.
func WithSigner(signer Signer) GCSOption {
	return func(s *GCSStore) {
		s.signer = signer
	}
}

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) GCSOption {
	return func(s *GCSStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewGCSStore wraps the provided Cloud Storage client.
func NewGCSStore(client *storage.Client, opts ...GCSOption) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	store := &GCSStore{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Write streams data into the named object, overwriting any previous contents.
func (s *GCSStore) Write(ctx context.Context, bucket, object, contentType string, data io.Reader) (ObjectInfo, error) {
	bucket, object, err := validateLocation(bucket, object)
	if err != nil {
		return ObjectInfo{}, err
	}

	writer := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	writer.ContentType = strings.TrimSpace(contentType)

	size, err := io.Copy(writer, data)
	if err != nil {
		_ = writer.Close()
		return ObjectInfo{}, fmt.Errorf("storage: write object %s/%s: %w", bucket, object, err)
	}
	if err := writer.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: finalise object %s/%s: %w", bucket, object, err)
	}

	return ObjectInfo{
		Bucket:      bucket,
		Name:        object,
		ContentType: writer.Attrs().ContentType,
		Size:        size,
		UpdatedAt:   writer.Attrs().Updated,
	}, nil
}

// Read opens the named object for reading.
func (s *GCSStore) Read(ctx context.Context, bucket, object string) (io.ReadCloser, ObjectInfo, error) {
	bucket, object, err := validateLocation(bucket, object)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("storage: read object %s/%s: %w", bucket, object, err)
	}

	info := ObjectInfo{
		Bucket:      bucket,
		Name:        object,
		ContentType: reader.Attrs.ContentType,
		Size:        reader.Attrs.Size,
	}
	return reader, info, nil
}

// Delete removes the named object. Missing objects are not treated as errors.
func (s *GCSStore) Delete(ctx context.Context, bucket, object string) error {
	bucket, object, err := validateLocation(bucket, object)
	if err != nil {
		return err
	}

	err = s.client.Bucket(bucket).Object(object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete object %s/%s: %w", bucket, object, err)
	}
	return nil
}

// SignedDownloadURL mints a V4 signed GET URL for the named object.
func (s *GCSStore) SignedDownloadURL(ctx context.Context, bucket, object string, expiresIn time.Duration) (string, time.Time, error) {
	bucket, object, err := validateLocation(bucket, object)
	if err != nil {
		return "", time.Time{}, err
	}
	if s.signer == nil || strings.TrimSpace(s.signer.Email()) == "" {
		return "", time.Time{}, errors.New("storage: signer is required for signed URLs")
	}
	if expiresIn <= 0 {
		expiresIn = defaultSignedURLExpiry
	}

	expiresAt := s.now().Add(expiresIn)
	signed, err := storage.SignedURL(bucket, object, &storage.SignedURLOptions{
		GoogleAccessID: s.signer.Email(),
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        expiresAt,
		SignBytes: func(payload []byte) ([]byte, error) {
			return s.signer.SignBytes(ctx, payload)
		},
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: sign download url: %w", err)
	}
	return signed, expiresAt, nil
}

func validateLocation(bucket, object string) (string, string, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return "", "", errInvalidBucket
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return "", "", errInvalidObject
	}
	return bucket, object, nil
}
