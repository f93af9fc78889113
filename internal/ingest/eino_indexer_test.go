// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"context"
	"testing"

	einoembed "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"

	"course-rag/internal/storage/vector"
)

// fixedEinoEmbedder 测试用：固定返回 4 维向量
type fixedEinoEmbedder struct{}

func (fixedEinoEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = []float64{1, 0, 0, 0}
	}
	return out, nil
}

func TestMemoryIndexer_Store(t *testing.T) {
	ctx := context.Background()
	store := vector.NewMemoryStore()
	dim := 4
	if err := vector.EnsureIndex(ctx, store, "course_catalog", dim, "cosine", nil); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	idx, err := NewMemoryIndexer(&MemoryIndexerConfig{
		VectorStore:  store,
		DefaultIndex: "course_catalog",
		BatchSize:    10,
	})
	if err != nil {
		t.Fatalf("NewMemoryIndexer: %v", err)
	}

	docs := []*schema.Document{
		{ID: "course-1", Content: "Introduction to RAG", MetaData: map[string]any{
			vector.MetaCourseTitle: "Introduction to RAG",
			vector.MetaCourseLink:  "https://example.com/rag",
		}},
		{ID: "course-2", Content: "MCP: Build Rich-Context AI Apps", MetaData: map[string]any{
			vector.MetaCourseTitle: "MCP: Build Rich-Context AI Apps",
		}},
	}
	for _, d := range docs {
		d.WithDenseVector([]float64{1, 0, 0, 0})
	}

	ids, err := idx.Store(ctx, docs)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %d", len(ids))
	}

	// 通过 vector store 验证写入
	v, err := store.Get(ctx, "course_catalog", "course-1")
	if err != nil {
		t.Fatalf("Get course-1: %v", err)
	}
	if len(v.Values) != dim {
		t.Errorf("Get course-1: bad vector length %d", len(v.Values))
	}
	if v.Metadata[vector.MetaCourseTitle] != "Introduction to RAG" {
		t.Errorf("Get course-1: bad title %q", v.Metadata[vector.MetaCourseTitle])
	}
	if v.Metadata[vector.MetaContent] != "Introduction to RAG" {
		t.Errorf("Get course-1: content not stored, got %q", v.Metadata[vector.MetaContent])
	}
}

func TestMemoryIndexer_EmbedsMissingVectors(t *testing.T) {
	ctx := context.Background()
	store := vector.NewMemoryStore()
	if err := vector.EnsureIndex(ctx, store, "course_catalog", 0, "cosine", nil); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	idx, err := NewMemoryIndexer(&MemoryIndexerConfig{
		VectorStore:  store,
		DefaultIndex: "course_catalog",
		Embedding:    fixedEinoEmbedder{},
	})
	if err != nil {
		t.Fatalf("NewMemoryIndexer: %v", err)
	}

	docs := []*schema.Document{
		{ID: "course-3", Content: "Advanced Retrieval"},
	}
	if _, err := idx.Store(ctx, docs); err != nil {
		t.Fatalf("Store: %v", err)
	}

	v, err := store.Get(ctx, "course_catalog", "course-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(v.Values) != 4 {
		t.Errorf("expected embedded 4-dim vector, got %d", len(v.Values))
	}
}

func TestMemoryIndexer_NoVectorNoEmbedder(t *testing.T) {
	ctx := context.Background()
	store := vector.NewMemoryStore()
	if err := vector.EnsureIndex(ctx, store, "course_catalog", 0, "cosine", nil); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}

	idx, err := NewMemoryIndexer(&MemoryIndexerConfig{
		VectorStore:  store,
		DefaultIndex: "course_catalog",
	})
	if err != nil {
		t.Fatalf("NewMemoryIndexer: %v", err)
	}

	if _, err := idx.Store(ctx, []*schema.Document{{ID: "x", Content: "no vector"}}); err == nil {
		t.Error("expected error when doc has no vector and no embedder")
	}
}

func TestMetaToStrings(t *testing.T) {
	meta := metaToStrings(map[string]any{
		"course_title":  "Intro",
		"lesson_number": 3,
		"chunk_index":   int64(7),
		"score":         0.5,
		"skipped":       []string{"not", "scalar"},
	})
	if meta["lesson_number"] != "3" || meta["chunk_index"] != "7" || meta["score"] != "0.5" {
		t.Errorf("numeric conversion wrong: %v", meta)
	}
	if _, ok := meta["skipped"]; ok {
		t.Error("non-scalar metadata should be dropped")
	}
}
