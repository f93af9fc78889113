package vector

import (
	"context"
	"fmt"

	"course-rag/pkg/config"
)

// NewStore 根据配置创建向量存储
func NewStore(ctx context.Context, cfg config.VectorConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("不支持的向量存储类型: %s", cfg.Type)
	}
}
