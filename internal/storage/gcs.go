package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/insightdelivered/sheetsift/internal/models"
)

// GCSStore keeps artifacts as objects <prefix>/<run id>/<name> in a
// Google Cloud Storage bucket. It assumes Application Default Credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Store = (*GCSStore)(nil)

// uploadTimeout bounds a single Save.
const uploadTimeout = 2 * time.Minute

// NewGCSStore creates a storage client for the bucket.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return NewGCSStoreWithClient(client, bucket, prefix), nil
}

// NewGCSStoreWithClient wraps an existing client.
func NewGCSStoreWithClient(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Save(ctx context.Context, name string, write func(io.Writer) error) (Artifact, error) {
	if err := validName(name); err != nil {
		return Artifact{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	id := uuid.NewString()
	obj := s.client.Bucket(s.bucket).Object(s.objectName(id, name))

	// the object only becomes visible once Close succeeds
	w := obj.NewWriter(ctx)
	w.ContentType = models.WorkbookContentType

	cw := &countingWriter{w: w}
	if err := write(cw); err != nil {
		cancel()
		_ = w.Close()
		return Artifact{}, err
	}
	if err := w.Close(); err != nil {
		return Artifact{}, fmt.Errorf("finalize upload: %w", err)
	}

	return Artifact{Ref: MakeRef(id, name), Name: name, Size: cw.n}, nil
}

func (s *GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	id, name, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(id, name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	return r, nil
}

func (s *GCSStore) Delete(ctx context.Context, ref string) error {
	id, name, err := ParseRef(ref)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(s.objectName(id, name)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete GCS object: %w", err)
	}
	return nil
}

func (s *GCSStore) objectName(id, name string) string {
	return path.Join(s.prefix, id, name)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
