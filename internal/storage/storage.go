// Package storage abstracts blob storage for uploaded files. The filesystem
// implementation serves single-node deployments; the Store interface is what
// the rest of the code depends on.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/madaris-app/madaris/internal/shared"
)

// Store saves and serves uploaded blobs by storage path.
type Store interface {
	// Upload writes r under the given storage path and returns a URL the
	// client can fetch it from.
	Upload(ctx context.Context, storagePath string, r io.Reader) (string, error)
	// URL returns the public URL for an existing storage path.
	URL(storagePath string) string
	// Delete removes the blob. Deleting a missing path is not an error.
	Delete(ctx context.Context, storagePath string) error
}

// FSStore keeps blobs on the local filesystem under a root directory and
// serves them under a URL prefix (mounted as a static file route).
type FSStore struct {
	root      string
	urlPrefix string
}

// NewFSStore builds a filesystem store. urlPrefix is the route the files are
// served under, e.g. "/files".
func NewFSStore(root, urlPrefix string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("storage root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSStore{root: root, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Root exposes the backing directory, for mounting the static file server.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) Upload(ctx context.Context, storagePath string, r io.Reader) (string, error) {
	full, err := s.resolve(storagePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return s.URL(storagePath), nil
}

func (s *FSStore) URL(storagePath string) string {
	return s.urlPrefix + "/" + strings.TrimPrefix(path.Clean(storagePath), "/")
}

func (s *FSStore) Delete(ctx context.Context, storagePath string) error {
	full, err := s.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// resolve maps a storage path onto the root, refusing traversal outside it.
func (s *FSStore) resolve(storagePath string) (string, error) {
	unescaped, err := url.PathUnescape(storagePath)
	if err != nil {
		unescaped = storagePath
	}
	clean := path.Clean(strings.TrimPrefix(unescaped, "/"))
	if clean == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", shared.NewValidationError("path", "invalid storage path")
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

var _ Store = (*FSStore)(nil)
