package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalPutGetRoundTrip(t *testing.T) {
	store := newLocalStore(t)

	info, err := store.Put(context.Background(), "report.parquet", []byte("payload"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Size != 7 {
		t.Fatalf("Size = %d", info.Size)
	}

	data, err := store.Get(context.Background(), "report.parquet")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q", data)
	}
}

func TestLocalPutOverwrites(t *testing.T) {
	store := newLocalStore(t)

	if _, err := store.Put(context.Background(), "k.parquet", []byte("one")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := store.Put(context.Background(), "k.parquet", []byte("two")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	data, err := store.Get(context.Background(), "k.parquet")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("data = %q, want overwrite to win", data)
	}
}

func TestLocalGetMissingReturnsNotFound(t *testing.T) {
	store := newLocalStore(t)
	if _, err := store.Get(context.Background(), "absent.parquet"); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("error = %v, want ErrArtifactNotFound", err)
	}
}

func TestLocalStatMissingReturnsNotFound(t *testing.T) {
	store := newLocalStore(t)
	if _, err := store.Stat(context.Background(), "absent.parquet"); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("error = %v, want ErrArtifactNotFound", err)
	}
}

func TestLocalDeleteMissingIsNoop(t *testing.T) {
	store := newLocalStore(t)
	if err := store.Delete(context.Background(), "absent.parquet"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestLocalRejectsKeysWithSeparators(t *testing.T) {
	store := newLocalStore(t)
	if _, err := store.Put(context.Background(), "../escape.parquet", []byte("x")); err == nil {
		t.Fatal("expected error for key with path separators")
	}
	if _, err := store.Get(context.Background(), "a/b.parquet"); err == nil {
		t.Fatal("expected error for nested key")
	}
}

func TestNewLocalCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "caches")
	if _, err := NewLocal(dir); err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	stat, err := os.Stat(dir)
	if err != nil || !stat.IsDir() {
		t.Fatalf("cache dir not created: %v", err)
	}
}

func newLocalStore(t *testing.T) *Local {
	t.Helper()
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return store
}
