package metadata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"course-rag/pkg/errors"
)

// MemoryStore 内存课程目录存储实现
type MemoryStore struct {
	mu      sync.RWMutex
	courses map[string]*Course // id -> course
	byTitle map[string]string  // title -> id
}

// NewMemoryStore 创建新的内存课程目录存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses: make(map[string]*Course),
		byTitle: make(map[string]string),
	}
}

// Upsert 按标题写入或更新课程
func (s *MemoryStore) Upsert(ctx context.Context, course *Course) error {
	if course.Title == "" {
		return fmt.Errorf("course title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	if id, exists := s.byTitle[course.Title]; exists {
		old := s.courses[id]
		course.ID = id
		course.CreatedAt = old.CreatedAt
		course.UpdatedAt = now
		s.courses[id] = course
		return nil
	}

	if course.ID == "" {
		course.ID = "course-" + uuid.New().String()
	}
	course.CreatedAt = now
	course.UpdatedAt = now
	s.courses[course.ID] = course
	s.byTitle[course.Title] = course.ID
	return nil
}

// Get 根据 ID 获取课程
func (s *MemoryStore) Get(ctx context.Context, id string) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	course, exists := s.courses[id]
	if !exists {
		return nil, fmt.Errorf("%w: course with ID %s", errors.ErrNotFound, id)
	}
	return course, nil
}

// GetByTitle 按标题精确获取课程
func (s *MemoryStore) GetByTitle(ctx context.Context, title string) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byTitle[title]
	if !exists {
		return nil, fmt.Errorf("%w: course with title %q", errors.ErrNotFound, title)
	}
	return s.courses[id], nil
}

// List 按标题序列出课程
func (s *MemoryStore) List(ctx context.Context, pagination *Pagination) ([]*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*Course, 0, len(s.courses))
	for _, c := range s.courses {
		results = append(results, c)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Title < results[j].Title
	})

	if pagination != nil {
		start := pagination.Offset
		if start >= len(results) {
			return []*Course{}, nil
		}
		end := start + pagination.Limit
		if pagination.Limit <= 0 || end > len(results) {
			end = len(results)
		}
		results = results[start:end]
	}
	return results, nil
}

// Titles 列出全部课程标题
func (s *MemoryStore) Titles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0, len(s.byTitle))
	for title := range s.byTitle {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// Count 统计课程数量
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.courses)), nil
}

// Delete 根据 ID 删除课程
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, exists := s.courses[id]
	if !exists {
		return fmt.Errorf("%w: course with ID %s", errors.ErrNotFound, id)
	}
	delete(s.byTitle, course.Title)
	delete(s.courses, id)
	return nil
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}
