// Package fs implements a filesystem-backed object store. Objects live
// as regular files directly under the configured root directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marcomacias410/ferry/pkg/store"
)

// tmpPattern names in-flight uploads so List can skip them. Uploads
// become visible only through the final rename.
const tmpPattern = ".upload-*.tmp"

// Config holds filesystem store configuration.
type Config struct {
	// Root is the directory that holds all objects.
	Root string

	// CreateDir creates Root (and parents) if it does not exist.
	CreateDir bool

	// DirMode is the permission for created directories (default 0755).
	DirMode os.FileMode

	// FileMode is the permission for stored objects (default 0644).
	FileMode os.FileMode
}

// Store is a filesystem-backed object store.
type Store struct {
	root     string
	fileMode os.FileMode

	mu     sync.RWMutex
	closed bool
}

// New creates a filesystem store rooted at cfg.Root.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("fs store: root directory is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("fs store: resolve root: %w", err)
	}

	if cfg.CreateDir {
		if err := os.MkdirAll(root, cfg.DirMode); err != nil {
			return nil, fmt.Errorf("fs store: create root: %w", err)
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fs store: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fs store: %s is not a directory", root)
	}

	return &Store{root: root, fileMode: cfg.FileMode}, nil
}

// Root returns the absolute directory objects are stored under.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) List(ctx context.Context) ([]store.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, store.NewError("list", "fs", "", err)
	}

	objects := make([]store.ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || isTempName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info.
			if os.IsNotExist(err) {
				continue
			}
			return nil, store.NewError("list", "fs", entry.Name(), err)
		}
		objects = append(objects, store.ObjectInfo{
			Name:       entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	return objects, nil
}

func (s *Store) Stat(ctx context.Context, name string) (store.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ObjectInfo{}, store.ErrStoreClosed
	}
	if err := store.ValidateName(name); err != nil {
		return store.ObjectInfo{}, err
	}

	info, err := os.Stat(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return store.ObjectInfo{}, store.ErrObjectNotFound
		}
		return store.ObjectInfo{}, store.NewError("stat", "fs", name, err)
	}
	if info.IsDir() {
		return store.ObjectInfo{}, store.ErrObjectNotFound
	}
	return store.ObjectInfo{Name: name, Size: info.Size(), ModifiedAt: info.ModTime()}, nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, store.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ObjectInfo{}, store.ErrStoreClosed
	}
	if err := store.ValidateName(name); err != nil {
		return nil, store.ObjectInfo{}, err
	}

	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ObjectInfo{}, store.ErrObjectNotFound
		}
		return nil, store.ObjectInfo{}, store.NewError("get", "fs", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, store.ObjectInfo{}, store.NewError("get", "fs", name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, store.ObjectInfo{}, store.ErrObjectNotFound
	}

	// The open descriptor pins this version of the object; a concurrent
	// overwrite renames a new inode into place without disturbing it.
	return f, store.ObjectInfo{Name: name, Size: info.Size(), ModifiedAt: info.ModTime()}, nil
}

func (s *Store) Put(ctx context.Context, name string, size int64, r io.Reader) (store.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ObjectInfo{}, store.ErrStoreClosed
	}
	if err := store.ValidateName(name); err != nil {
		return store.ObjectInfo{}, err
	}
	if size < 0 {
		return store.ObjectInfo{}, store.NewError("put", "fs", name, fmt.Errorf("negative size %d", size))
	}

	tmp, err := os.CreateTemp(s.root, tmpPattern)
	if err != nil {
		return store.ObjectInfo{}, store.NewError("put", "fs", name, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := io.CopyN(tmp, r, size); err != nil {
		cleanup()
		return store.ObjectInfo{}, store.NewError("put", "fs", name, err)
	}

	info, err := tmp.Stat()
	if err != nil {
		cleanup()
		return store.ObjectInfo{}, store.NewError("put", "fs", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return store.ObjectInfo{}, store.NewError("put", "fs", name, err)
	}
	if err := os.Chmod(tmpName, s.fileMode); err != nil {
		os.Remove(tmpName)
		return store.ObjectInfo{}, store.NewError("put", "fs", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		os.Remove(tmpName)
		return store.ObjectInfo{}, store.NewError("put", "fs", name, err)
	}

	return store.ObjectInfo{Name: name, Size: size, ModifiedAt: info.ModTime()}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return store.NewError("health", "fs", "", err)
	}
	if !info.IsDir() {
		return store.NewError("health", "fs", "", fmt.Errorf("%s is not a directory", s.root))
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, name)
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".upload-") && strings.HasSuffix(name, ".tmp")
}

var _ store.Store = (*Store)(nil)
