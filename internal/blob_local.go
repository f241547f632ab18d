package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/classifieds"
)

// LocalBlobStore writes images below a directory and serves them under a
// URL prefix such as /images/listings/<file>.
type LocalBlobStore struct {
	root      string
	urlPrefix string
	folder    string
}

var _ classifieds.BlobStore = (*LocalBlobStore)(nil)

func NewLocalBlobStore(cfg classifieds.BlobConfig) (*LocalBlobStore, error) {
	if cfg.MountDir == "" {
		return nil, fmt.Errorf("blob mount directory is required")
	}
	prefix := "/" + strings.Trim(cfg.URLPrefix, "/")
	if prefix == "/" {
		prefix = "/images"
	}
	return &LocalBlobStore{
		root:      cfg.MountDir,
		urlPrefix: prefix,
		folder:    strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

// URLPrefix is the path under which stored files are served.
func (s *LocalBlobStore) URLPrefix() string {
	return s.urlPrefix
}

// Root is the directory holding the stored files.
func (s *LocalBlobStore) Root() string {
	return s.root
}

func (s *LocalBlobStore) Store(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey(s.folder, name)
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return s.urlPrefix + "/" + key, nil
}

func (s *LocalBlobStore) Delete(ctx context.Context, url string) error {
	target, err := s.Resolve(url)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// Resolve maps a URL returned by Store to its file path. Paths escaping the
// root are rejected.
func (s *LocalBlobStore) Resolve(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok || rel == "" {
		return "", fmt.Errorf("url %q is not served by the local blob store", url)
	}
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel {
		return "", fmt.Errorf("invalid image path %q", rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
