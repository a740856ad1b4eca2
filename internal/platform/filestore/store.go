// Package filestore keeps uploaded evidence and artifact files.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned when a key has no stored object.
var ErrNotExist = errors.New("filestore: object does not exist")

// Object describes a stored file.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store is a flat key/value file store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend         string
	Dir             string
	Bucket          string
	CredentialsFile string
}

// New builds the configured Store.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.Dir)
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("filestore: unknown backend %q", cfg.Backend)
	}
}

// NewKey builds a unique key under prefix that keeps the original file name
// readable, e.g. artifacts/3f0c...-policy.pdf.
func NewKey(prefix, filename string) string {
	return path.Join(prefix, uuid.NewString()+"-"+SanitizeName(filename))
}

// SanitizeName strips directories and characters unsafe in object keys.
func SanitizeName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("filestore: invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("filestore: invalid key %q", key)
		}
	}
	return nil
}

// DisplayName returns the original file name of a key made by NewKey.
func DisplayName(key string) string {
	base := path.Base(key)
	if len(base) > 37 && base[36] == '-' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}
