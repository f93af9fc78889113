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
	"strings"

	"course-rag/internal/model/embedding"
	"course-rag/internal/storage/cache"
	"course-rag/internal/storage/metadata"
	"course-rag/internal/storage/vector"
	"course-rag/pkg/config"
	"course-rag/pkg/log"
	"course-rag/pkg/secrets"
)

// Bootstrap 统一初始化：供 api 与 ingest 复用，避免在 cmd 内写业务装配
type Bootstrap struct {
	Config        *config.Config
	Logger        *log.Logger
	Secrets       secrets.Store
	MetadataStore metadata.Store
	VectorStore   vector.Store
	CacheStore    cache.Store
	Embedder      embedding.Embedder
}

// NewBootstrap 根据配置创建基础设施（日志、Secret、存储、Embedding）。
// Embedding 模型缺失不视为致命错误：Embedder 为 nil，依赖它的组件降级或报错。
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置为空")
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Config:   cfg.Secrets.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 Secret Store failed: %w", err)
	}
	resolveModelSecrets(ctx, cfg, secretStore, logger)

	metaStore, err := metadata.NewStore(ctx, cfg.Storage.Metadata)
	if err != nil {
		return nil, fmt.Errorf("初始化课程目录存储failed: %w", err)
	}
	vecStore, err := vector.NewStore(ctx, cfg.Storage.Vector)
	if err != nil {
		return nil, fmt.Errorf("初始化向量存储failed: %w", err)
	}
	cacheStore, err := cache.NewCache(ctx, cfg.Storage.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存failed: %w", err)
	}

	embedder, err := embedding.NewEmbedder(cfg)
	if err != nil {
		logger.Warn("Embedding 模型未配置，检索与入库不可用", "error", err)
		embedder = nil
	}

	return &Bootstrap{
		Config:        cfg,
		Logger:        logger,
		Secrets:       secretStore,
		MetadataStore: metaStore,
		VectorStore:   vecStore,
		CacheStore:    cacheStore,
		Embedder:      embedder,
	}, nil
}

// Close 关闭持有的存储连接
func (b *Bootstrap) Close() error {
	var firstErr error
	if b.CacheStore != nil {
		if err := b.CacheStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.VectorStore != nil {
		if err := b.VectorStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.MetadataStore != nil {
		if err := b.MetadataStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// resolveModelSecrets 用 Secret Store 补全模型 API Key。
// 仅处理为空或环境变量占位未被替换的条目；查不到时保留原值。
// 键格式：model/llm/<provider>/api_key、model/embedding/<provider>/api_key。
func resolveModelSecrets(ctx context.Context, cfg *config.Config, store secrets.Store, logger *log.Logger) {
	resolve := func(kind string, providers map[string]config.ProviderConfig) {
		for name, pc := range providers {
			if pc.APIKey != "" && !strings.HasPrefix(pc.APIKey, "${") {
				continue
			}
			key := fmt.Sprintf("model/%s/%s/api_key", kind, name)
			val, err := store.Get(ctx, key)
			if err != nil || val == "" {
				continue
			}
			pc.APIKey = val
			providers[name] = pc
			logger.Debug("API Key 已从 Secret Store 加载", "kind", kind, "provider", name)
		}
	}
	resolve("llm", cfg.Model.LLM.Providers)
	resolve("embedding", cfg.Model.Embedding.Providers)
}
