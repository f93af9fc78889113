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

package search

import (
	"context"
	"testing"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"

	"course-rag/internal/storage/vector"
)

// unitEinoEmbedder 测试用：任意文本映射到固定 4 维向量
type unitEinoEmbedder struct {
	vec []float64
}

func (m unitEinoEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = m.vec
	}
	return out, nil
}

func newCatalogStore(t *testing.T) vector.Store {
	t.Helper()
	ctx := context.Background()
	store := vector.NewMemoryStore()
	if err := vector.EnsureIndex(ctx, store, "course_catalog", 4, "cosine", nil); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	entries := []*vector.Vector{
		{ID: "course-1", Values: []float64{1, 0, 0, 0}, Metadata: map[string]string{
			vector.MetaContent:     "Introduction to RAG",
			vector.MetaCourseTitle: "Introduction to RAG",
		}},
		{ID: "course-2", Values: []float64{0, 1, 0, 0}, Metadata: map[string]string{
			vector.MetaContent:     "MCP: Build Rich-Context AI Apps",
			vector.MetaCourseTitle: "MCP: Build Rich-Context AI Apps",
		}},
	}
	if err := store.Add(ctx, "course_catalog", entries); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return store
}

func TestMemoryRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()
	store := newCatalogStore(t)

	ret, err := NewMemoryRetriever(&MemoryRetrieverConfig{
		VectorStore:  store,
		DefaultIndex: "course_catalog",
		DefaultTopK:  1,
		Embedding:    unitEinoEmbedder{vec: []float64{0.9, 0.1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("NewMemoryRetriever: %v", err)
	}

	docs, err := ret.Retrieve(ctx, "intro to rag")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if docs[0].ID != "course-1" {
		t.Errorf("expected nearest course-1, got %s", docs[0].ID)
	}
	if docs[0].MetaData[vector.MetaCourseTitle] != "Introduction to RAG" {
		t.Errorf("unexpected title metadata: %v", docs[0].MetaData)
	}
	if docs[0].Score() <= 0 {
		t.Errorf("expected positive score, got %f", docs[0].Score())
	}
}

func TestMemoryRetriever_NoThresholdKeepsWeakMatch(t *testing.T) {
	ctx := context.Background()
	store := newCatalogStore(t)

	// 与两条目录条目的相似度都很低，解析仍应取最近邻
	ret, err := NewMemoryRetriever(&MemoryRetrieverConfig{
		VectorStore:  store,
		DefaultIndex: "course_catalog",
		DefaultTopK:  1,
		Embedding:    unitEinoEmbedder{vec: []float64{0.1, 0.05, 0.7, 0.7}},
	})
	if err != nil {
		t.Fatalf("NewMemoryRetriever: %v", err)
	}

	docs, err := ret.Retrieve(ctx, "mcp")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected nearest neighbor despite weak similarity, got %d docs", len(docs))
	}
}

func TestMemoryRetriever_OptionOverrides(t *testing.T) {
	ctx := context.Background()
	store := newCatalogStore(t)

	ret, err := NewMemoryRetriever(&MemoryRetrieverConfig{
		VectorStore:  store,
		DefaultIndex: "course_catalog",
		DefaultTopK:  1,
	})
	if err != nil {
		t.Fatalf("NewMemoryRetriever: %v", err)
	}

	// 构造时未配 Embedding，调用侧 WithEmbedding 补上；WithTopK 放宽
	docs, err := ret.Retrieve(ctx, "any",
		einoretriever.WithEmbedding(unitEinoEmbedder{vec: []float64{1, 1, 0, 0}}),
		einoretriever.WithTopK(2),
	)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 docs with WithTopK(2), got %d", len(docs))
	}
}

func TestMemoryRetriever_RequiresEmbedding(t *testing.T) {
	store := newCatalogStore(t)
	ret, err := NewMemoryRetriever(&MemoryRetrieverConfig{
		VectorStore:  store,
		DefaultIndex: "course_catalog",
	})
	if err != nil {
		t.Fatalf("NewMemoryRetriever: %v", err)
	}
	if _, err := ret.Retrieve(context.Background(), "q"); err == nil {
		t.Error("expected error without embedding")
	}
}
