package vector

import (
	"context"
	"fmt"
)

// ChunkIndexFields 内容切片索引的字段声明（redis 后端生成 FT schema 用）
func ChunkIndexFields() map[string]string {
	return map[string]string{
		MetaContent:      "text",
		MetaCourseTitle:  "tag",
		MetaLessonTitle:  "text",
		MetaLessonNumber: "numeric",
		MetaChunkIndex:   "numeric",
	}
}

// EnsureIndex 若索引不存在则创建，存在则跳过
func EnsureIndex(ctx context.Context, s Store, name string, dimension int, distance string, fields map[string]string) error {
	if distance == "" {
		distance = "cosine"
	}
	list, err := s.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("列出索引失败: %w", err)
	}
	for _, n := range list {
		if n == name {
			return nil
		}
	}
	return s.Create(ctx, &Index{
		Name:      name,
		Dimension: dimension,
		Distance:  distance,
		Fields:    fields,
	})
}
