package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/voxbot/internal/filex"
)

// LocalStore writes blobs under a root directory. Locators are file paths.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes store root", key)
	}
	if err := filex.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *LocalStore) Delete(_ context.Context, locator string) error {
	return filex.RemoveIfExists(locator)
}
