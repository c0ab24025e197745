// Package memory implements an in-memory object store. Objects are
// held as byte slices; contents do not survive a restart. Useful for
// tests and as a scratch backend.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/marcomacias410/ferry/pkg/store"
)

type object struct {
	data       []byte
	modifiedAt time.Time
}

// Store is an in-memory object store safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	closed  bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) List(ctx context.Context) ([]store.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	infos := make([]store.ObjectInfo, 0, len(s.objects))
	for name, obj := range s.objects {
		infos = append(infos, store.ObjectInfo{
			Name:       name,
			Size:       int64(len(obj.data)),
			ModifiedAt: obj.modifiedAt,
		})
	}
	return infos, nil
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

	obj, ok := s.objects[name]
	if !ok {
		return store.ObjectInfo{}, store.ErrObjectNotFound
	}
	return store.ObjectInfo{Name: name, Size: int64(len(obj.data)), ModifiedAt: obj.modifiedAt}, nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, store.ErrStoreClosed
	}
	if err := store.ValidateName(name); err != nil {
		return false, err
	}
	_, ok := s.objects[name]
	return ok, nil
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

	obj, ok := s.objects[name]
	if !ok {
		return nil, store.ObjectInfo{}, store.ErrObjectNotFound
	}

	// Slices are replaced wholesale on Put and never mutated, so the
	// reader stays valid across concurrent overwrites.
	info := store.ObjectInfo{Name: name, Size: int64(len(obj.data)), ModifiedAt: obj.modifiedAt}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

func (s *Store) Put(ctx context.Context, name string, size int64, r io.Reader) (store.ObjectInfo, error) {
	if err := store.ValidateName(name); err != nil {
		return store.ObjectInfo{}, err
	}
	if size < 0 {
		return store.ObjectInfo{}, store.NewError("put", "memory", name, fmt.Errorf("negative size %d", size))
	}

	// Read the full payload before taking the lock so a slow source
	// never stalls other sessions.
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.CopyN(buf, r, size); err != nil {
		return store.ObjectInfo{}, store.NewError("put", "memory", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ObjectInfo{}, store.ErrStoreClosed
	}

	now := time.Now()
	s.objects[name] = object{data: buf.Bytes(), modifiedAt: now}
	return store.ObjectInfo{Name: name, Size: size, ModifiedAt: now}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.objects = nil
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	return nil
}

var _ store.Store = (*Store)(nil)
