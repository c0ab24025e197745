// Package badger implements an object store on BadgerDB. Each object
// occupies two keys committed in one transaction, so readers observe
// either the previous version or the new one, never a mix.
//
// Key namespace:
//
//	Data Type   Prefix   Key Format   Value Type
//	=================================================
//	Metadata    "m:"     m:<name>     ObjectInfo (JSON)
//	Content     "o:"     o:<name>     raw bytes
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marcomacias410/ferry/pkg/store"
)

const (
	prefixMeta    = "m:"
	prefixContent = "o:"
)

func keyMeta(name string) []byte {
	return []byte(prefixMeta + name)
}

func keyContent(name string) []byte {
	return []byte(prefixContent + name)
}

// objectMeta is the JSON shape stored under "m:" keys.
type objectMeta struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func encodeMeta(info store.ObjectInfo) ([]byte, error) {
	return json.Marshal(objectMeta{Name: info.Name, Size: info.Size, ModifiedAt: info.ModifiedAt})
}

func decodeMeta(val []byte) (store.ObjectInfo, error) {
	var m objectMeta
	if err := json.Unmarshal(val, &m); err != nil {
		return store.ObjectInfo{}, fmt.Errorf("decode object metadata: %w", err)
	}
	return store.ObjectInfo{Name: m.Name, Size: m.Size, ModifiedAt: m.ModifiedAt}, nil
}

// Config holds BadgerDB store configuration.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the whole database in RAM. Nothing survives Close.
	InMemory bool
}

// Store is a BadgerDB-backed object store.
type Store struct {
	db *badgerdb.DB
}

// New opens (or creates) the database and returns the store.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger store: directory is required")
	}

	opts := badgerdb.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	// Badger's default logger prints straight to stderr; the server has
	// its own logging.
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger store: open %s: %w", cfg.Dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) List(ctx context.Context) ([]store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db.IsClosed() {
		return nil, store.ErrStoreClosed
	}

	var infos []store.ObjectInfo
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixMeta)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if len(infos)%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			err := it.Item().Value(func(val []byte) error {
				info, err := decodeMeta(val)
				if err != nil {
					return err
				}
				infos = append(infos, info)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.NewError("list", "badger", "", err)
	}
	if infos == nil {
		infos = []store.ObjectInfo{}
	}
	return infos, nil
}

func (s *Store) Stat(ctx context.Context, name string) (store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.ObjectInfo{}, err
	}
	if s.db.IsClosed() {
		return store.ObjectInfo{}, store.ErrStoreClosed
	}
	if err := store.ValidateName(name); err != nil {
		return store.ObjectInfo{}, err
	}

	var info store.ObjectInfo
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyMeta(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			info, err = decodeMeta(val)
			return err
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return store.ObjectInfo{}, store.ErrObjectNotFound
	}
	if err != nil {
		return store.ObjectInfo{}, store.NewError("stat", "badger", name, err)
	}
	return info, nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	if err != nil {
		if err == store.ErrObjectNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.ObjectInfo{}, err
	}
	if s.db.IsClosed() {
		return nil, store.ObjectInfo{}, store.ErrStoreClosed
	}
	if err := store.ValidateName(name); err != nil {
		return nil, store.ObjectInfo{}, err
	}

	var (
		info store.ObjectInfo
		data []byte
	)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyMeta(name))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			info, err = decodeMeta(val)
			return err
		}); err != nil {
			return err
		}

		item, err = txn.Get(keyContent(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, store.ObjectInfo{}, store.ErrObjectNotFound
	}
	if err != nil {
		return nil, store.ObjectInfo{}, store.NewError("get", "badger", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

func (s *Store) Put(ctx context.Context, name string, size int64, r io.Reader) (store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.ObjectInfo{}, err
	}
	if s.db.IsClosed() {
		return store.ObjectInfo{}, store.ErrStoreClosed
	}
	if err := store.ValidateName(name); err != nil {
		return store.ObjectInfo{}, err
	}
	if size < 0 {
		return store.ObjectInfo{}, store.NewError("put", "badger", name, fmt.Errorf("negative size %d", size))
	}

	// Buffer the payload outside the transaction; an Update callback
	// may be retried on conflict and the source cannot be re-read.
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.CopyN(buf, r, size); err != nil {
		return store.ObjectInfo{}, store.NewError("put", "badger", name, err)
	}

	info := store.ObjectInfo{Name: name, Size: size, ModifiedAt: time.Now()}
	metaBytes, err := encodeMeta(info)
	if err != nil {
		return store.ObjectInfo{}, store.NewError("put", "badger", name, err)
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(keyContent(name), buf.Bytes()); err != nil {
			return err
		}
		return txn.Set(keyMeta(name), metaBytes)
	})
	if err != nil {
		return store.ObjectInfo{}, store.NewError("put", "badger", name, err)
	}
	return info, nil
}

func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return store.ErrStoreClosed
	}

	// A no-op read transaction verifies the database can serve requests.
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return nil
	})
	if err != nil {
		return store.NewError("health", "badger", "", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
