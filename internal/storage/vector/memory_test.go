package vector

import (
	"context"
	"testing"
)

func TestMemoryStore_Create_Add_Search(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	idx := &Index{Name: "chunks", Dimension: 2, Distance: "cosine"}
	if err := s.Create(ctx, idx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	vecs := []*Vector{
		{ID: "c1", Values: []float64{1, 0}, Metadata: map[string]string{MetaCourseTitle: "MCP", MetaLessonNumber: "1"}},
		{ID: "c2", Values: []float64{0, 1}, Metadata: map[string]string{MetaCourseTitle: "RAG", MetaLessonNumber: "2"}},
	}
	if err := s.Add(ctx, "chunks", vecs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	results, err := s.Search(ctx, "chunks", []float64{1, 0}, &SearchOptions{TopK: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) < 1 {
		t.Fatalf("Search: expected at least 1 result, got %d", len(results))
	}
	if results[0].ID != "c1" {
		t.Errorf("Search: expected c1 first (cosine sim), got %s", results[0].ID)
	}
}

func TestMemoryStore_Search_Filter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, &Index{Name: "chunks", Dimension: 2})
	_ = s.Add(ctx, "chunks", []*Vector{
		{ID: "c1", Values: []float64{1, 0}, Metadata: map[string]string{MetaCourseTitle: "MCP", MetaLessonNumber: "1"}},
		{ID: "c2", Values: []float64{0.9, 0.1}, Metadata: map[string]string{MetaCourseTitle: "MCP", MetaLessonNumber: "2"}},
		{ID: "c3", Values: []float64{0.8, 0.2}, Metadata: map[string]string{MetaCourseTitle: "RAG", MetaLessonNumber: "1"}},
	})

	results, err := s.Search(ctx, "chunks", []float64{1, 0}, &SearchOptions{
		TopK:   10,
		Filter: map[string]string{MetaCourseTitle: "MCP", MetaLessonNumber: "2"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c2" {
		t.Errorf("filtered search: %+v", results)
	}
}

func TestMemoryStore_Search_Threshold(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, &Index{Name: "chunks", Dimension: 2})
	_ = s.Add(ctx, "chunks", []*Vector{
		{ID: "near", Values: []float64{1, 0}},
		{ID: "far", Values: []float64{-1, 0}},
	})

	results, err := s.Search(ctx, "chunks", []float64{1, 0}, &SearchOptions{TopK: 10, Threshold: 0.5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "near" {
		t.Errorf("threshold search: %+v", results)
	}
}

func TestMemoryStore_Create_DuplicateIndex(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	idx := &Index{Name: "x", Dimension: 2}
	_ = s.Create(ctx, idx)
	if err := s.Create(ctx, &Index{Name: "x", Dimension: 2}); err == nil {
		t.Error("Create duplicate index should error")
	}
}

func TestMemoryStore_Add_IndexNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Add(ctx, "missing", []*Vector{{ID: "v1", Values: []float64{1}}}); err == nil {
		t.Error("Add to missing index should error")
	}
}

func TestMemoryStore_Add_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, &Index{Name: "i", Dimension: 2})
	if err := s.Add(ctx, "i", []*Vector{{ID: "v1", Values: []float64{1, 0, 0}}}); err == nil {
		t.Error("Add with wrong dimension should error")
	}
}

func TestMemoryStore_GetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, &Index{Name: "i", Dimension: 1})
	_ = s.Add(ctx, "i", []*Vector{{ID: "v1", Values: []float64{1}}})

	v, err := s.Get(ctx, "i", "v1")
	if err != nil || v.ID != "v1" {
		t.Fatalf("Get: %v %v", v, err)
	}
	if err := s.Delete(ctx, "i", "v1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "i", "v1"); err == nil {
		t.Error("Get deleted vector should error")
	}
}

func TestEnsureIndex_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := EnsureIndex(ctx, s, "chunks", 2, "", ChunkIndexFields()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := EnsureIndex(ctx, s, "chunks", 2, "", ChunkIndexFields()); err != nil {
		t.Fatalf("EnsureIndex second call: %v", err)
	}
	names, _ := s.ListIndexes(ctx)
	if len(names) != 1 {
		t.Errorf("expected single index, got %v", names)
	}
}
