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

package app

import (
	"context"
	"fmt"

	"course-rag/internal/einoext"
	"course-rag/internal/ingest"
	"course-rag/internal/model/embedding"
)

// NewIngestPipeline 装配课程入库管线。API 的启动入库、上传入库与 ingest CLI
// 共用此装配，保证写入与检索落在同一份索引上。需要 Embedding 模型已配置。
func NewIngestPipeline(ctx context.Context, b *Bootstrap) (*ingest.Pipeline, error) {
	if b == nil {
		return nil, fmt.Errorf("bootstrap 为空")
	}
	if b.Embedder == nil {
		return nil, fmt.Errorf("Embedding 模型未配置")
	}
	cfg := b.Config
	if cfg.Search.ChunkIndex == "" && cfg.Storage.Vector.Collection != "" {
		cfg.Search.ChunkIndex = cfg.Storage.Vector.Collection
	}

	catalogIndexer, err := einoext.NewCatalogIndexer(ctx, cfg.Storage.Vector, b.VectorStore,
		embedding.NewEinoEmbedder(b.Embedder))
	if err != nil {
		return nil, fmt.Errorf("初始化课程目录索引器failed: %w", err)
	}
	indexer, err := ingest.NewIndexer(&ingest.IndexerConfig{
		MetadataStore: b.MetadataStore,
		VectorStore:   b.VectorStore,
		Catalog:       catalogIndexer,
		Embedder:      b.Embedder,
		Splitter:      ingest.NewSplitter(cfg.Storage.Ingest.ChunkSize, cfg.Storage.Ingest.ChunkOverlap),
		Logger:        b.Logger,
		ChunkIndex:    cfg.Search.ChunkIndex,
		CatalogIndex:  einoext.CatalogIndexName(cfg.Storage.Vector),
		BatchSize:     cfg.Storage.Ingest.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化课程索引器failed: %w", err)
	}
	return ingest.NewPipeline(indexer, b.Logger), nil
}
