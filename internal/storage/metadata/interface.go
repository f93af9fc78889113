package metadata

import (
	"context"
)

// Store 课程目录存储接口
type Store interface {
	// Upsert 按标题写入或更新课程；ID 为空时生成
	Upsert(ctx context.Context, course *Course) error
	// Get 根据 ID 获取课程
	Get(ctx context.Context, id string) (*Course, error)
	// GetByTitle 按标题精确获取课程
	GetByTitle(ctx context.Context, title string) (*Course, error)
	// List 按标题序列出课程
	List(ctx context.Context, pagination *Pagination) ([]*Course, error)
	// Titles 列出全部课程标题
	Titles(ctx context.Context) ([]string, error)
	// Count 统计课程数量
	Count(ctx context.Context) (int64, error)
	// Delete 根据 ID 删除课程
	Delete(ctx context.Context, id string) error
	// Close 关闭存储连接
	Close() error
}

// Course 课程目录条目
type Course struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
	ChunkCount int      `json:"chunk_count"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
}

// Lesson 课次条目
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// FindLesson 按课次号查找，不存在返回 nil
func (c *Course) FindLesson(number int) *Lesson {
	for i := range c.Lessons {
		if c.Lessons[i].Number == number {
			return &c.Lessons[i]
		}
	}
	return nil
}

// Pagination 分页参数
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
