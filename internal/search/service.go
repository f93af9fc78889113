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

package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	einoretriever "github.com/cloudwego/eino/components/retriever"

	"course-rag/internal/model/embedding"
	"course-rag/internal/storage/cache"
	"course-rag/internal/storage/metadata"
	"course-rag/internal/storage/vector"
	"course-rag/pkg/config"
	pkgerrors "course-rag/pkg/errors"
	"course-rag/pkg/log"
)

const (
	defaultChunkIndex = "course_chunks"
	defaultMaxResults = 5
	defaultResolveTTL = 5 * time.Minute
)

// Request 正文检索请求
type Request struct {
	Query        string
	CourseName   string // 可空：限定课程（允许模糊名，检索前先解析）
	LessonNumber *int   // 可空：限定课次
	Limit        int    // <=0 用服务默认值
}

// Chunk 命中的正文分块
type Chunk struct {
	Content      string
	CourseTitle  string
	CourseLink   string
	LessonNumber *int
	LessonLink   string
	Score        float64
}

// Results 检索结果；Course 为解析后的准确标题，未限定课程时为空
type Results struct {
	Course string
	Lesson *int
	Chunks []Chunk
}

// Stats 课程库统计
type Stats struct {
	CourseCount  int64    `json:"course_count"`
	CourseTitles []string `json:"course_titles"`
}

// Service 课程检索服务：课程名解析、正文语义检索、课程大纲
type Service struct {
	vectorStore   vector.Store
	metadataStore metadata.Store
	catalog       einoretriever.Retriever
	embedder      embedding.Embedder
	cacheStore    cache.Store
	logger        *log.Logger

	chunkIndex string
	maxResults int
	resolveTTL time.Duration
}

// NewService 创建检索服务。cacheStore 可为 nil（关闭解析缓存）。
func NewService(
	vectorStore vector.Store,
	metadataStore metadata.Store,
	catalog einoretriever.Retriever,
	embedder embedding.Embedder,
	cacheStore cache.Store,
	logger *log.Logger,
	cfg config.SearchConfig,
) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	chunkIndex := cfg.ChunkIndex
	if chunkIndex == "" {
		chunkIndex = defaultChunkIndex
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	resolveTTL := defaultResolveTTL
	if cfg.ResolveCacheTTL != "" {
		if d, err := time.ParseDuration(cfg.ResolveCacheTTL); err == nil && d > 0 {
			resolveTTL = d
		}
	}
	return &Service{
		vectorStore:   vectorStore,
		metadataStore: metadataStore,
		catalog:       catalog,
		embedder:      embedder,
		cacheStore:    cacheStore,
		logger:        logger,
		chunkIndex:    chunkIndex,
		maxResults:    maxResults,
		resolveTTL:    resolveTTL,
	}
}

// ResolveCourseName 把模糊课程名解析为目录中的准确标题。
// 目录索引上取最近邻，无匹配返回空串（不是错误）。
func (s *Service) ResolveCourseName(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}

	key := "resolve:" + name
	if s.cacheStore != nil {
		var cached string
		if err := s.cacheStore.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	// 准确标题直接命中目录，免一次向量化
	if s.metadataStore != nil {
		if c, err := s.metadataStore.GetByTitle(ctx, name); err == nil {
			return c.Title, nil
		}
	}

	docs, err := s.catalog.Retrieve(ctx, name)
	if err != nil {
		return "", fmt.Errorf("解析课程名failed: %w", err)
	}
	if len(docs) == 0 {
		return "", nil
	}
	// 目录条目的正文即课程标题；redis 组件只回传 Content，memory 适配器
	// 同时带元数据，两边都从 Content 取
	title := docs[0].Content
	if title == "" {
		if v, ok := docs[0].MetaData[vector.MetaCourseTitle].(string); ok {
			title = v
		}
	}
	if title != "" && s.cacheStore != nil {
		if err := s.cacheStore.Set(ctx, key, title, s.resolveTTL); err != nil {
			s.logger.Warn("写入课程名解析缓存failed", "course", name, "error", err)
		}
	}
	return title, nil
}

// Search 在课程正文分块上做语义检索，支持课程/课次过滤。
// 限定了课程但解析不到时返回包装 ErrNotFound 的错误。
func (s *Service) Search(ctx context.Context, req *Request) (*Results, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", pkgerrors.ErrInvalidArg)
	}

	out := &Results{Lesson: req.LessonNumber}
	filter := make(map[string]string)
	if req.CourseName != "" {
		title, err := s.ResolveCourseName(ctx, req.CourseName)
		if err != nil {
			return nil, err
		}
		if title == "" {
			return nil, fmt.Errorf("%w: no course matching %q", pkgerrors.ErrNotFound, req.CourseName)
		}
		out.Course = title
		filter[vector.MetaCourseTitle] = title
	}
	if req.LessonNumber != nil {
		filter[vector.MetaLessonNumber] = strconv.Itoa(*req.LessonNumber)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	qvec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("query 向量化failed: %w", err)
	}

	hits, err := s.vectorStore.Search(ctx, s.chunkIndex, qvec, &vector.SearchOptions{
		TopK:   limit,
		Filter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("向量检索failed: %w", err)
	}

	out.Chunks = make([]Chunk, 0, len(hits))
	for _, hit := range hits {
		out.Chunks = append(out.Chunks, chunkFromResult(hit))
	}
	return out, nil
}

// Outline 返回课程大纲（标题、链接、讲师、课次列表）
func (s *Service) Outline(ctx context.Context, courseName string) (*metadata.Course, error) {
	title, err := s.ResolveCourseName(ctx, courseName)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, fmt.Errorf("%w: no course matching %q", pkgerrors.ErrNotFound, courseName)
	}
	return s.metadataStore.GetByTitle(ctx, title)
}

// Courses 列出全部课程（按标题排序）
func (s *Service) Courses(ctx context.Context) ([]*metadata.Course, error) {
	return s.metadataStore.List(ctx, nil)
}

// Stats 返回课程库统计
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.metadataStore.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计课程数failed: %w", err)
	}
	titles, err := s.metadataStore.Titles(ctx)
	if err != nil {
		return nil, fmt.Errorf("列出课程标题failed: %w", err)
	}
	return &Stats{CourseCount: count, CourseTitles: titles}, nil
}

func chunkFromResult(hit *vector.SearchResult) Chunk {
	c := Chunk{
		Content:     hit.Metadata[vector.MetaContent],
		CourseTitle: hit.Metadata[vector.MetaCourseTitle],
		CourseLink:  hit.Metadata[vector.MetaCourseLink],
		LessonLink:  hit.Metadata[vector.MetaLessonLink],
		Score:       hit.Score,
	}
	if raw := hit.Metadata[vector.MetaLessonNumber]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			c.LessonNumber = &n
		}
	}
	return c
}
