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
	"fmt"
	"strconv"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"

	"course-rag/internal/storage/vector"
)

// MemoryIndexer 基于 vector.Store 实现的 Eino indexer.Indexer（memory 后端），
// 用于写入课程目录条目
type MemoryIndexer struct {
	vectorStore  vector.Store
	defaultIndex string
	batchSize    int
	embedding    einoembed.Embedder
}

// MemoryIndexerConfig MemoryIndexer 构造参数
type MemoryIndexerConfig struct {
	VectorStore  vector.Store
	DefaultIndex string
	BatchSize    int
	// Embedding 对缺向量的文档做向量化；调用侧 WithEmbedding 选项优先
	Embedding einoembed.Embedder
}

// NewMemoryIndexer 创建基于 vector.Store 的 Eino Indexer
func NewMemoryIndexer(cfg *MemoryIndexerConfig) (*MemoryIndexer, error) {
	if cfg == nil || cfg.VectorStore == nil {
		return nil, fmt.Errorf("MemoryIndexer 需要 VectorStore")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	index := cfg.DefaultIndex
	if index == "" {
		index = "default"
	}
	return &MemoryIndexer{
		vectorStore:  cfg.VectorStore,
		defaultIndex: index,
		batchSize:    batchSize,
		embedding:    cfg.Embedding,
	}, nil
}

// Store 实现 github.com/cloudwego/eino/components/indexer.Indexer
func (m *MemoryIndexer) Store(ctx context.Context, docs []*schema.Document, opts ...einoindexer.Option) (ids []string, err error) {
	if len(docs) == 0 {
		return nil, nil
	}
	options := einoindexer.GetCommonOptions(nil, opts...)
	indexName := m.defaultIndex
	if options != nil && len(options.SubIndexes) > 0 && options.SubIndexes[0] != "" {
		indexName = options.SubIndexes[0]
	}
	embedder := m.embedding
	if options != nil && options.Embedding != nil {
		embedder = options.Embedding
	}

	// 索引被整体清除后（如重建入库）自动补建；维度 0 接受任意维度
	if err := vector.EnsureIndex(ctx, m.vectorStore, indexName, 0, "cosine", nil); err != nil {
		return nil, fmt.Errorf("ensure index %s: %w", indexName, err)
	}

	// 缺向量的文档一次性批量向量化
	var missing []int
	var texts []string
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		if len(doc.DenseVector()) == 0 && doc.Content != "" {
			missing = append(missing, i)
			texts = append(texts, doc.Content)
		}
	}
	if len(texts) > 0 {
		if embedder == nil {
			return nil, fmt.Errorf("doc %s has no vector and no Embedding configured", docs[missing[0]].ID)
		}
		vecs, e := embedder.EmbedStrings(ctx, texts)
		if e != nil {
			return nil, fmt.Errorf("indexer embedding: %w", e)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedding returned %d vectors for %d texts", len(vecs), len(texts))
		}
		for j, i := range missing {
			docs[i].WithDenseVector(vecs[j])
		}
	}

	allIDs := make([]string, 0, len(docs))
	for i := 0; i < len(docs); i += m.batchSize {
		end := i + m.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[i:end]
		vecs := make([]*vector.Vector, 0, len(batch))
		for _, doc := range batch {
			if doc == nil {
				continue
			}
			vec := doc.DenseVector()
			if len(vec) == 0 {
				return nil, fmt.Errorf("doc %s has no vector and no Embedding configured", doc.ID)
			}
			meta := metaToStrings(doc.MetaData)
			if doc.Content != "" {
				meta[vector.MetaContent] = doc.Content
			}
			vecs = append(vecs, &vector.Vector{
				ID:       doc.ID,
				Values:   vec,
				Metadata: meta,
			})
			allIDs = append(allIDs, doc.ID)
		}
		if len(vecs) == 0 {
			continue
		}
		if err := m.vectorStore.Add(ctx, indexName, vecs); err != nil {
			return nil, fmt.Errorf("vector store add: %w", err)
		}
	}
	return allIDs, nil
}

// metaToStrings 将 schema.Document 元数据转为 map[string]string，
// 数值（如 lesson_number）转十进制字符串
func metaToStrings(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		switch t := v.(type) {
		case string:
			out[k] = t
		case int:
			out[k] = strconv.Itoa(t)
		case int64:
			out[k] = strconv.FormatInt(t, 10)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return out
}
