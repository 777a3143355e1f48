package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/graceskyliz/ocr3/internal/common"
)

// LocalStore serves "file://" locators and keys relative to Root
// ("tenant/document/file.pdf").
type LocalStore struct {
	Root   string
	logger *slog.Logger
}

func NewLocalStore(root string, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{Root: root, logger: logger}
}

func (s *LocalStore) Fetch(_ context.Context, locator string) (Fetched, error) {
	p, err := s.resolve(locator)
	if err != nil {
		return Fetched{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fetched{}, common.NotFound("stored file %s", locator)
		}
		return Fetched{}, common.WrapError(err, "stat stored file")
	}
	if st.IsDir() {
		return Fetched{}, common.NotFound("stored file %s is a directory", locator)
	}
	s.logger.Debug("storage.local.fetch", "path", p, "bytes", st.Size())
	return Fetched{Path: p, Cleanup: noop}, nil
}

func (s *LocalStore) resolve(locator string) (string, error) {
	p := strings.TrimPrefix(locator, "file://")
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	if s.Root == "" {
		return filepath.Clean(p), nil
	}
	root := filepath.Clean(s.Root)
	full := filepath.Join(root, p)
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", common.InvalidInput("storage key escapes root: %s", locator)
	}
	return full, nil
}
