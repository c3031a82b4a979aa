package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000IHDR")

func TestNewKey(t *testing.T) {
	a := NewKey("image/png")
	b := NewKey("image/png")

	if a == b {
		t.Fatalf("expected distinct keys, got %q twice", a)
	}
	if !strings.HasPrefix(a, "products/") || !strings.HasSuffix(a, ".png") {
		t.Errorf("unexpected key shape %q", a)
	}
	if !ValidKey(a) {
		t.Errorf("expected %q to be a valid key", a)
	}
	if got := NewKey("application/x-whatever"); !strings.HasSuffix(got, ".bin") {
		t.Errorf("expected .bin extension for unknown type, got %q", got)
	}
}

func TestValidKey_RejectsTraversal(t *testing.T) {
	for _, key := range []string{
		"",
		"../etc/passwd",
		"products/../../secret",
		"products/123-abc.png",
		"photo.png",
	} {
		if ValidKey(key) {
			t.Errorf("expected %q to be rejected", key)
		}
	}
}

func newStores(t *testing.T) map[string]BlobStore {
	t.Helper()
	local, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return map[string]BlobStore{
		"memory": NewMemoryStore(),
		"local":  local,
	}
}

func TestBlobStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			key, err := store.Put(ctx, pngHeader, "image/png")
			if err != nil {
				t.Fatalf("Put: %v", err)
			}

			blob, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !bytes.Equal(blob.Data, pngHeader) {
				t.Errorf("data mismatch")
			}
			if blob.ContentType != "image/png" {
				t.Errorf("expected image/png, got %q", blob.ContentType)
			}

			if err := store.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
			if err := store.Delete(ctx, key); err != nil {
				t.Errorf("second delete should be a no-op, got %v", err)
			}
		})
	}
}

func TestBlobStore_GetUnknownKey(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, NewKey("image/png")); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if _, err := store.Get(ctx, "../../etc/passwd"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound for malformed key, got %v", err)
			}
		})
	}
}

func TestBlobStore_PutNeverReusesKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < 50; i++ {
				key, err := store.Put(ctx, []byte{byte(i)}, "image/jpeg")
				if err != nil {
					t.Fatalf("Put: %v", err)
				}
				if seen[key] {
					t.Fatalf("key %q returned twice", key)
				}
				seen[key] = true
			}
		})
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	data := []byte("abc")
	key, _ := store.Put(ctx, data, "image/png")
	data[0] = 'z'

	blob, _ := store.Get(ctx, key)
	if string(blob.Data) != "abc" {
		t.Errorf("stored data changed with caller's slice: %q", blob.Data)
	}
}
