package store

import (
	"context"
	"testing"
	"time"
)

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	s := NewNullStore()
	defer s.Close()

	data, hit, err := s.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullStore.Get should always miss")
	}

	if err := s.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = s.Get(ctx, "key"); hit {
		t.Error("NullStore should not keep data")
	}
	if err := s.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	defer s.Close()

	if _, hit, _ := s.Get(ctx, "report-1"); hit {
		t.Error("empty store reported a hit")
	}

	want := []byte(`{"total": 4096}`)
	if err := s.Set(ctx, "report-1", want, 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, hit, err := s.Get(ctx, "report-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit || string(got) != string(want) {
		t.Errorf("Get = %q, %v, want %q, true", got, hit, want)
	}

	if err := s.Delete(ctx, "report-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := s.Get(ctx, "report-1"); hit {
		t.Error("deleted entry still present")
	}

	// Deleting again is fine.
	if err := s.Delete(ctx, "report-1"); err != nil {
		t.Errorf("second Delete error: %v", err)
	}
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	defer s.Close()

	if err := s.Set(ctx, "ephemeral", []byte("x"), time.Millisecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, hit, _ := s.Get(ctx, "ephemeral"); hit {
		t.Error("expired entry still served")
	}

	// Unexpiring entries survive.
	if err := s.Set(ctx, "durable", []byte("y"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, hit, _ := s.Get(ctx, "durable"); !hit {
		t.Error("entry without ttl went missing")
	}
}

func TestFileStoreKeySafety(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	defer s.Close()

	// Hostile keys must not escape the store directory.
	key := "../../etc/passwd"
	if err := s.Set(ctx, key, []byte("x"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, hit, err := s.Get(ctx, key)
	if err != nil || !hit || string(got) != "x" {
		t.Errorf("Get(hostile key) = %q, %v, %v", got, hit, err)
	}
}
