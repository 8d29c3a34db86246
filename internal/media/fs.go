package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Filesystem stores objects as files under a root directory.
type Filesystem struct {
	root    string
	baseURL string
}

// NewFilesystem returns a store rooted at root, creating it if needed. With
// an empty baseURL, object URLs are file:// URLs.
func NewFilesystem(root, baseURL string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating media root %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving media root: %w", err)
	}
	return &Filesystem{root: abs, baseURL: baseURL}, nil
}

// sanitizeKey rejects keys that would escape the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}

// Put writes r to a temp file and renames it into place.
func (s *Filesystem) Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Object{}, err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(k))
	if _, err := os.Stat(dst); err == nil {
		return Object{}, fmt.Errorf("%s: %w", key, ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return Object{}, fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return Object{}, fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Object{}, fmt.Errorf("moving %s into place: %w", key, err)
	}

	return Object{Key: k, URL: s.URL(k), Size: size, ContentType: contentType}, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *Filesystem) Delete(ctx context.Context, key string) error {
	k, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(k)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// URL returns where the object can be read.
func (s *Filesystem) URL(key string) string {
	if s.baseURL != "" {
		return joinURL(s.baseURL, key)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(key)))}).String()
}
