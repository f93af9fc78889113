package vector

import (
	"context"
)

// 切片元数据键。ingest 写入、search 过滤与工具格式化共用这组键。
const (
	MetaContent      = "content"
	MetaCourseTitle  = "course_title"
	MetaCourseLink   = "course_link"
	MetaLessonTitle  = "lesson_title"
	MetaLessonNumber = "lesson_number"
	MetaLessonLink   = "lesson_link"
	MetaChunkIndex   = "chunk_index"
)

// Store 向量存储接口
type Store interface {
	// Create 创建向量索引
	Create(ctx context.Context, index *Index) error
	// Add 添加向量
	Add(ctx context.Context, indexName string, vectors []*Vector) error
	// Search 搜索向量
	Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error)
	// Get 根据 ID 获取向量
	Get(ctx context.Context, indexName string, id string) (*Vector, error)
	// Delete 删除向量
	Delete(ctx context.Context, indexName string, id string) error
	// DeleteIndex 删除索引及其全部向量
	DeleteIndex(ctx context.Context, indexName string) error
	// ListIndexes 列出所有索引
	ListIndexes(ctx context.Context) ([]string, error)
	// Close 关闭存储连接
	Close() error
}

// Index 向量索引。Fields 声明可过滤字段及类型（text | tag | numeric），
// redis 后端据此生成检索 schema，memory 后端忽略。
type Index struct {
	Name      string            `json:"name"`
	Dimension int               `json:"dimension"`
	Distance  string            `json:"distance"` // cosine | euclidean | manhattan
	Fields    map[string]string `json:"fields"`
}

// Vector 向量数据；切片正文与课程归属放在 Metadata 中
type Vector struct {
	ID       string            `json:"id"`
	Values   []float64         `json:"values"`
	Metadata map[string]string `json:"metadata"`
}

// SearchOptions 搜索选项
type SearchOptions struct {
	TopK           int               `json:"top_k"`
	Filter         map[string]string `json:"filter"`    // 元数据等值过滤
	Threshold      float64           `json:"threshold"` // 相似度下限
	IncludeVectors bool              `json:"include_vectors"`
}

// SearchResult 搜索结果
type SearchResult struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
	Values   []float64         `json:"values,omitempty"`
}
