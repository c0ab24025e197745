package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/marcomacias410/ferry/pkg/store"
)

func TestStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	data := []byte("hello world")
	info, err := s.Put(ctx, "greeting.txt", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if info.Name != "greeting.txt" || info.Size != int64(len(data)) {
		t.Errorf("Put returned info %+v", info)
	}

	rc, got, err := s.Get(ctx, "greeting.txt")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer rc.Close()

	read, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(read) != string(data) {
		t.Errorf("Get returned %q, want %q", read, data)
	}
	if got.Size != int64(len(data)) {
		t.Errorf("Get info size = %d, want %d", got.Size, len(data))
	}
}

func TestStore_PutEmptyObject(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	if _, err := s.Put(ctx, "empty", 0, bytes.NewReader(nil)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, info, err := s.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer rc.Close()

	if info.Size != 0 {
		t.Errorf("Get info size = %d, want 0", info.Size)
	}
	read, _ := io.ReadAll(rc)
	if len(read) != 0 {
		t.Errorf("Get returned %d bytes, want 0", len(read))
	}
}

func TestStore_GetNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	_, _, err := s.Get(ctx, "nonexistent")
	if err != store.ErrObjectNotFound {
		t.Errorf("Get returned error %v, want %v", err, store.ErrObjectNotFound)
	}

	_, err = s.Stat(ctx, "nonexistent")
	if err != store.ErrObjectNotFound {
		t.Errorf("Stat returned error %v, want %v", err, store.ErrObjectNotFound)
	}
}

func TestStore_PutShortSource(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	// Source ends before the declared size.
	_, err := s.Put(ctx, "short", 100, strings.NewReader("only ten b"))
	if err == nil {
		t.Fatal("Put with short source should fail")
	}

	// Nothing was committed.
	ok, err := s.Exists(ctx, "short")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("Exists = true after failed Put, want false")
	}
}

func TestStore_PutInvalidName(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	for _, name := range []string{"", "a/b", `a\b`, "..", "line\nbreak"} {
		_, err := s.Put(ctx, name, 1, strings.NewReader("x"))
		if !errors.Is(err, store.ErrInvalidName) {
			t.Errorf("Put(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	if _, err := s.Put(ctx, "obj", 7, strings.NewReader("initial")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Put(ctx, "obj", 11, strings.NewReader("replacement")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, info, err := s.Get(ctx, "obj")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer rc.Close()

	read, _ := io.ReadAll(rc)
	if string(read) != "replacement" {
		t.Errorf("Get returned %q, want %q", read, "replacement")
	}
	if info.Size != 11 {
		t.Errorf("Get info size = %d, want 11", info.Size)
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("List returned %d objects after overwrite, want 1", len(infos))
	}
}

func TestStore_ReaderSurvivesOverwrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	if _, err := s.Put(ctx, "obj", 3, strings.NewReader("old")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, _, err := s.Get(ctx, "obj")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer rc.Close()

	if _, err := s.Put(ctx, "obj", 3, strings.NewReader("new")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	read, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(read) != "old" {
		t.Errorf("reader opened before overwrite returned %q, want %q", read, "old")
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("List on empty store returned %d objects, want 0", len(infos))
	}

	names := []string{"a.txt", "b.txt", "name with spaces"}
	for _, name := range names {
		if _, err := s.Put(ctx, name, 4, strings.NewReader("data")); err != nil {
			t.Fatalf("Put(%q) failed: %v", name, err)
		}
	}

	infos, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != len(names) {
		t.Fatalf("List returned %d objects, want %d", len(infos), len(names))
	}

	seen := make(map[string]bool)
	for _, info := range infos {
		seen[info.Name] = true
		if info.Size != 4 {
			t.Errorf("List entry %q has size %d, want 4", info.Name, info.Size)
		}
		if info.ModifiedAt.IsZero() {
			t.Errorf("List entry %q has zero ModifiedAt", info.Name)
		}
	}
	for _, name := range names {
		if !seen[name] {
			t.Errorf("List is missing %q", name)
		}
	}
}

func TestStore_ConcurrentPutSameName(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := strings.Repeat(fmt.Sprintf("%d", i), 100)
			if _, err := s.Put(ctx, "contended", int64(len(payload)), strings.NewReader(payload)); err != nil {
				t.Errorf("Put failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// Whichever writer won, the object is one writer's payload intact.
	rc, info, err := s.Get(ctx, "contended")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer rc.Close()

	read, _ := io.ReadAll(rc)
	if int64(len(read)) != info.Size || len(read) != 100 {
		t.Fatalf("Get returned %d bytes, info says %d, want 100", len(read), info.Size)
	}
	for i := 1; i < len(read); i++ {
		if read[i] != read[0] {
			t.Fatalf("object interleaves writers: %q", read[:16])
		}
	}
}

func TestStore_ClosedOperations(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.List(ctx); err != store.ErrStoreClosed {
		t.Errorf("List on closed store returned %v, want %v", err, store.ErrStoreClosed)
	}
	if _, _, err := s.Get(ctx, "key"); err != store.ErrStoreClosed {
		t.Errorf("Get on closed store returned %v, want %v", err, store.ErrStoreClosed)
	}
	if _, err := s.Put(ctx, "key", 4, strings.NewReader("data")); err != store.ErrStoreClosed {
		t.Errorf("Put on closed store returned %v, want %v", err, store.ErrStoreClosed)
	}
	if err := s.HealthCheck(ctx); err != store.ErrStoreClosed {
		t.Errorf("HealthCheck on closed store returned %v, want %v", err, store.ErrStoreClosed)
	}
}

func TestStore_HealthCheck(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer func() { _ = s.Close() }()

	if err := s.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
