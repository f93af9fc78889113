package embedding

import (
	"context"

	einoembedding "github.com/cloudwego/eino/components/embedding"
)

// EinoEmbedder 将 Embedder 适配为 eino 的 embedding.Embedder，
// 供 eino indexer / retriever 组件使用
type EinoEmbedder struct {
	inner Embedder
}

// NewEinoEmbedder 创建 eino Embedder 适配器
func NewEinoEmbedder(inner Embedder) *EinoEmbedder {
	return &EinoEmbedder{inner: inner}
}

// EmbedStrings 实现 eino embedding.Embedder
func (e *EinoEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...einoembedding.Option) ([][]float64, error) {
	return e.inner.EmbedBatch(ctx, texts)
}
