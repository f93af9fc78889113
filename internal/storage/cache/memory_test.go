package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "course-rag/pkg/errors"
)

func TestMemoryStore_Set_Get_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var v string
	if err := s.Get(ctx, "k1", &v); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "v1" {
		t.Errorf("Get: got %q", v)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Get(ctx, "k1", &v); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("Get after Delete: want ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Get_Miss(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var v string
	if err := s.Get(ctx, "missing", &v); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("Get missing: want ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_StructRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type resolved struct {
		Title string `json:"title"`
		Score float64
	}
	in := resolved{Title: "Introduction to RAG", Score: 0.92}
	if err := s.Set(ctx, "resolve:intro", in, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var out resolved
	if err := s.Get(ctx, "resolve:intro", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "short", "v", time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var v string
	if err := s.Get(ctx, "short", &v); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("expired Get: want ErrNotFound, got %v", err)
	}
	ok, err := s.Exists(ctx, "short")
	if err != nil || ok {
		t.Errorf("expired Exists: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ok, err := s.Exists(ctx, "k")
	if err != nil || ok {
		t.Errorf("Exists missing: ok=%v err=%v", ok, err)
	}
	_ = s.Set(ctx, "k", "v", 0)
	ok, err = s.Exists(ctx, "k")
	if err != nil || !ok {
		t.Errorf("Exists present: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "k1", "v1", 0)
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	var v string
	if err := s.Get(ctx, "k1", &v); err == nil {
		t.Error("Get after Clear should error")
	}
}
