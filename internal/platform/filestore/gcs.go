package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCS connects to the bucket using the credentials file when given and
// application default credentials otherwise.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("filestore: gcs bucket required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("filestore: gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error) {
	if err := validKey(key); err != nil {
		return Object{}, err
	}
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, no-cache"
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("filestore: gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("filestore: gcs close %s: %w", key, err)
	}
	obj := Object{Key: key, Size: n, ContentType: contentType}
	if attrs := w.Attrs(); attrs != nil {
		obj.ModTime = attrs.Updated
	}
	return obj, nil
}

func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	if err := validKey(key); err != nil {
		return nil, Object{}, err
	}
	rd, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, Object{}, fmt.Errorf("%s: %w", key, ErrNotExist)
		}
		return nil, Object{}, fmt.Errorf("filestore: gcs open %s: %w", key, err)
	}
	return rd, Object{
		Key:         key,
		Size:        rd.Attrs.Size,
		ContentType: rd.Attrs.ContentType,
		ModTime:     rd.Attrs.LastModified,
	}, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("filestore: gcs delete %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("filestore: gcs list %s: %w", prefix, err)
		}
		out = append(out, Object{Key: attrs.Name, Size: attrs.Size, ContentType: attrs.ContentType, ModTime: attrs.Updated})
	}
	return out, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
