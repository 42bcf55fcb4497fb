package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"programhub/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return store
}

func TestPutHeadGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	info, err := store.Put(ctx, "documents/plan.txt", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	head, err := store.Head(ctx, "documents/plan.txt")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ETag != info.ETag || head.ContentType != "text/plain" {
		t.Fatalf("head mismatch %+v vs %+v", head, info)
	}
	_, rc, err := store.Get(ctx, "documents/plan.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(body) != "hello" {
		t.Fatalf("body = %q", body)
	}
	if ok, err := store.Delete(ctx, "documents/plan.txt"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "documents", "plan.txt.meta")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("sidecar should be removed, stat err = %v", err)
	}
	if ok, err := store.Delete(ctx, "documents/plan.txt"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
}

func TestPutNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	if _, err := store.Put(ctx, "a.txt", bytes.NewReader([]byte("one")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "a.txt", bytes.NewReader([]byte("two")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := store.Get(ctx, "a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	if body, _ := io.ReadAll(rc); string(body) != "one" {
		t.Fatalf("object was overwritten: %q", body)
	}
}

func TestRejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	for _, key := range []string{"", "../escape", "/abs", "a/../../b", `dir\file`, "x.meta"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

func TestMissingObjects(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if _, err := store.PresignURL(ctx, "missing", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("presign: %v", err)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}
}
