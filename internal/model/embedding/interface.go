package embedding

import (
	"context"
	"fmt"

	"course-rag/pkg/config"
)

// Embedder 文本向量化接口
type Embedder interface {
	// Embed 计算单条文本的向量
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedBatch 批量计算向量，返回顺序与输入一致
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	// Dimension 返回向量维度
	Dimension() int
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// NewEmbedder 创建 Embedding 客户端；根据 defaults.embedding（provider.model_key）解析提供商与模型。
// OpenAI 兼容端点（openai / qwen / deepseek 等）统一走 /embeddings 接口，由 base_url 区分。
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	provider, modelKey, err := config.ParseModelKey(cfg.Model.Defaults.Embedding)
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.Model.Embedding.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("embedding provider %q not configured", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("embedding model %q not configured in provider %q", modelKey, provider)
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("embedding provider %q api_key not configured", provider)
	}
	return NewOpenAIEmbedder(provider, pc, mi)
}
