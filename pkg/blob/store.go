// Package blob provides object storage for source and generated images:
// existence checks, whole-object fetch/put, and time-limited read-only links.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned by Download when no object exists at the path.
var ErrNotFound = errors.New("blob: object not found")

// Store defines the object storage contract the edit workflow needs.
type Store interface {
	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Download returns the full object bytes. Missing objects yield ErrNotFound.
	Download(ctx context.Context, path string) ([]byte, error)
	// Upload writes the object bytes at path with the given content type.
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	// SignedURL issues a read-only GET capability for the object, valid for
	// the given expiry window.
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// cleanPath normalizes an object path and rejects traversal outside the root.
func cleanPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("blob: empty object path")
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if strings.HasPrefix(cleaned, "/") || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("blob: invalid object path: %s", path)
	}
	return cleaned, nil
}

// FileStore is a filesystem-backed implementation of Store. Signed links are
// HMAC-authenticated /media/ URLs served by the API's media handler.
type FileStore struct {
	baseDir string
	signer  *LinkSigner
}

// NewFileStore creates a file store rooted at baseDir. signer may be nil, in
// which case SignedURL fails (fail closed, matching unsigned deployments).
func NewFileStore(baseDir string, signer *LinkSigner) (*FileStore, error) {
	//nolint:gosec // G301: 0755 is intentional for the shared media directory
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("blob: ensure media dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, signer: signer}, nil
}

func (s *FileStore) diskPath(path string) (string, error) {
	cleaned, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}

func (s *FileStore) Exists(_ context.Context, path string) (bool, error) {
	p, err := s.diskPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("blob: stat %s: %w", path, err)
}

func (s *FileStore) Download(_ context.Context, path string) ([]byte, error) {
	p, err := s.diskPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // path is sanitized against traversal
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("blob: read %s: %w", path, err)
	}
	return data, nil
}

func (s *FileStore) Upload(_ context.Context, path string, data []byte, _ string) error {
	p, err := s.diskPath(path)
	if err != nil {
		return err
	}
	//nolint:gosec // G301: parent dirs mirror the object namespace
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("blob: ensure parent dir: %w", err)
	}

	// Write to temp, then rename, so readers never observe a partial object.
	tmp := p + ".tmp"
	//nolint:gosec // G306: 0644 is intentional for readable media files
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("blob: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("blob: commit %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) SignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	cleaned, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	if s.signer == nil {
		return "", errors.New("blob: link signer not configured (fail-closed)")
	}
	return s.signer.Sign(cleaned, expiry), nil
}
