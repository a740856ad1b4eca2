package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects as files below a root directory.
type LocalStore struct {
	root string
}

// NewLocal creates the root directory when missing.
func NewLocal(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("filestore: local directory required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put writes to a temporary file and renames it into place.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error) {
	dst, err := s.path(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return Object{}, fmt.Errorf("filestore: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("filestore: temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return Object{}, fmt.Errorf("filestore: write %s: %w", key, errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return Object{}, fmt.Errorf("filestore: rename %s: %w", key, err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		return Object{}, fmt.Errorf("filestore: stat %s: %w", key, err)
	}
	return Object{Key: key, Size: n, ContentType: contentType, ModTime: info.ModTime()}, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, fmt.Errorf("%s: %w", key, ErrNotExist)
		}
		return nil, Object{}, fmt.Errorf("filestore: open %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Object{}, fmt.Errorf("filestore: stat %s: %w", key, err)
	}
	return f, localObject(key, info), nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, localObject(key, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filestore: list %s: %w", prefix, err)
	}
	return out, nil
}

func localObject(key string, info fs.FileInfo) Object {
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Object{Key: key, Size: info.Size(), ContentType: contentType, ModTime: info.ModTime()}
}
