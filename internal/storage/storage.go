// Package storage provides the artifact store backing the pipeline: raw
// input batches are read from it and harmonized artifacts are written to
// it. An S3 backend is used in production; a local filesystem backend
// keeps everything runnable and testable without AWS.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore is the narrow contract the pipeline needs from a blob backend.
type BlobStore interface {
	// Get returns the content of the named blob.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes the blob, overwriting any existing content under the key.
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Config selects and parameterizes a backend.
type Config struct {
	Type       string
	S3Bucket   string
	AWSRegion  string
	AWSProfile string
	LocalPath  string
}

// New creates a BlobStore for the configured backend type.
func New(ctx context.Context, cfg Config) (BlobStore, error) {
	switch cfg.Type {
	case "aws":
		return NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.AWSProfile)
	case "local", "":
		return NewLocalStore(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// LocalStore is a filesystem-backed BlobStore. Keys map to paths under the
// base directory; nested key prefixes become directories.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a LocalStore rooted at baseDir, creating it if
// needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// Get returns the content of the named blob.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", key, err)
	}
	return data, nil
}

// Put writes the blob, overwriting any existing file.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating blob directory for %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("writing blob %s: %w", key, err)
	}
	return nil
}
