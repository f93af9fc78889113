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

package einoext

import (
	"context"
	"fmt"

	redisindexer "github.com/cloudwego/eino-ext/components/indexer/redis"
	redisretriever "github.com/cloudwego/eino-ext/components/retriever/redis"
	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/redis/go-redis/v9"

	"course-rag/internal/ingest"
	"course-rag/internal/search"
	"course-rag/internal/storage/vector"
	"course-rag/pkg/config"
)

const (
	defaultBatchSize    = 100
	defaultResolveTopK  = 1
	defaultCatalogIndex = "course_catalog"
)

// CatalogIndexName 返回课程目录索引名
func CatalogIndexName(cfg config.VectorConfig) string {
	if cfg.Catalog != "" {
		return cfg.Catalog
	}
	return defaultCatalogIndex
}

// NewCatalogIndexer 创建写课程目录的 Eino Indexer
// （memory 用现有 vector.Store；redis 用 eino-ext，索引结构由组件自行管理）
func NewCatalogIndexer(ctx context.Context, cfg config.VectorConfig, vectorStore vector.Store, embedder einoembed.Embedder) (einoindexer.Indexer, error) {
	t := cfg.Type
	if t == "" {
		t = "memory"
	}
	catalog := CatalogIndexName(cfg)
	switch t {
	case "memory":
		if vectorStore == nil {
			return nil, fmt.Errorf("vector type is memory but VectorStore is nil")
		}
		// 维度 0：目录索引接受任意维度，由首批写入决定
		if err := vector.EnsureIndex(ctx, vectorStore, catalog, 0, "cosine", nil); err != nil {
			return nil, fmt.Errorf("ensure catalog index: %w", err)
		}
		return ingest.NewMemoryIndexer(&ingest.MemoryIndexerConfig{
			VectorStore:  vectorStore,
			DefaultIndex: catalog,
			BatchSize:    defaultBatchSize,
			Embedding:    embedder,
		})
	case "redis":
		client, err := newRedisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		idx, err := redisindexer.NewIndexer(ctx, &redisindexer.IndexerConfig{
			Client:    client,
			KeyPrefix: catalog,
			BatchSize: defaultBatchSize,
			Embedding: embedder,
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis indexer: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported vector type: %s", t)
	}
}

// NewCatalogRetriever 创建课程名解析用的 Eino Retriever：目录索引上取最近邻，
// 不卡相似度阈值
func NewCatalogRetriever(ctx context.Context, cfg config.VectorConfig, vectorStore vector.Store, embedder einoembed.Embedder) (einoretriever.Retriever, error) {
	t := cfg.Type
	if t == "" {
		t = "memory"
	}
	catalog := CatalogIndexName(cfg)
	switch t {
	case "memory":
		if vectorStore == nil {
			return nil, fmt.Errorf("vector type is memory but VectorStore is nil")
		}
		if err := vector.EnsureIndex(ctx, vectorStore, catalog, 0, "cosine", nil); err != nil {
			return nil, fmt.Errorf("ensure catalog index: %w", err)
		}
		return search.NewMemoryRetriever(&search.MemoryRetrieverConfig{
			VectorStore:  vectorStore,
			DefaultIndex: catalog,
			DefaultTopK:  defaultResolveTopK,
			Embedding:    embedder,
		})
	case "redis":
		client, err := newRedisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ret, err := redisretriever.NewRetriever(ctx, &redisretriever.RetrieverConfig{
			Client:    client,
			Index:     catalog,
			TopK:      defaultResolveTopK,
			Embedding: embedder,
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis retriever: %w", err)
		}
		return ret, nil
	default:
		return nil, fmt.Errorf("unsupported vector type: %s", t)
	}
}

func newRedisClient(ctx context.Context, cfg config.VectorConfig) (*redis.Client, error) {
	client := redis.NewClient(vector.RedisOptions(cfg))
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
