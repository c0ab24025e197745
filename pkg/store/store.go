// Package store defines the storage backend interface: a flat namespace
// of named byte objects with metadata. Protocol sessions depend only on
// this interface, never on which implementation is active.
package store

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one stored object. Names may contain spaces but
// never path separators or newlines; sizes are non-negative.
type ObjectInfo struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// Store is the abstract object store backing the file service.
//
// Implementations must support concurrent List/Get calls without
// blocking each other, and must commit Put atomically: a concurrent
// reader observes either the previous object or the fully written one,
// never a partial state. Put to an existing name replaces it on
// success.
type Store interface {
	// List returns metadata for every stored object, in no particular
	// order. An empty store yields an empty slice.
	List(ctx context.Context) ([]ObjectInfo, error)

	// Stat returns metadata for one object.
	// Returns ErrObjectNotFound if the name is absent.
	Stat(ctx context.Context, name string) (ObjectInfo, error)

	// Exists reports whether the name is present.
	Exists(ctx context.Context, name string) (bool, error)

	// Get opens the object for reading. The caller must close the
	// returned reader. Returns ErrObjectNotFound if the name is absent.
	Get(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)

	// Put reads exactly size bytes from r and commits them under name.
	// On any error nothing is committed and no partial object becomes
	// visible to List, Stat or Get.
	Put(ctx context.Context, name string, size int64, r io.Reader) (ObjectInfo, error)

	// Close releases any resources held by the store.
	Close() error

	// HealthCheck verifies the store is accessible and operational.
	HealthCheck(ctx context.Context) error
}
