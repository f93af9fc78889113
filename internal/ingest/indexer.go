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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"course-rag/internal/model/embedding"
	"course-rag/internal/storage/metadata"
	"course-rag/internal/storage/vector"
	pkgerrors "course-rag/pkg/errors"
	"course-rag/pkg/log"
)

const (
	defaultChunkIndexName = "course_chunks"
	defaultBatchSize      = 100
)

// Indexer 将解析后的课程写入课程目录、目录索引与正文分块向量
type Indexer struct {
	metadataStore metadata.Store
	vectorStore   vector.Store
	catalog       einoindexer.Indexer
	embedder      embedding.Embedder
	splitter      *Splitter
	logger        *log.Logger

	chunkIndex   string
	catalogIndex string
	batchSize    int
	indexReady   bool
}

// IndexerConfig Indexer 构造参数
type IndexerConfig struct {
	MetadataStore metadata.Store
	VectorStore   vector.Store
	Catalog       einoindexer.Indexer // 课程目录条目写入（eino 组件）
	Embedder      embedding.Embedder
	Splitter      *Splitter // nil 用默认 800/100
	Logger        *log.Logger
	ChunkIndex    string // 正文分块索引名，空则 course_chunks
	CatalogIndex  string // 目录索引名，Clear 时整索引删除用
	BatchSize     int    // 向量化与写入批大小，<=0 则 100
}

// NewIndexer 创建课程索引器
func NewIndexer(cfg *IndexerConfig) (*Indexer, error) {
	if cfg == nil || cfg.MetadataStore == nil || cfg.VectorStore == nil ||
		cfg.Catalog == nil || cfg.Embedder == nil {
		return nil, fmt.Errorf("Indexer 需要 MetadataStore、VectorStore、Catalog 与 Embedder")
	}
	splitter := cfg.Splitter
	if splitter == nil {
		splitter = NewSplitter(0, 0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	chunkIndex := cfg.ChunkIndex
	if chunkIndex == "" {
		chunkIndex = defaultChunkIndexName
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Indexer{
		metadataStore: cfg.MetadataStore,
		vectorStore:   cfg.VectorStore,
		catalog:       cfg.Catalog,
		embedder:      cfg.Embedder,
		splitter:      splitter,
		logger:        logger,
		chunkIndex:    chunkIndex,
		catalogIndex:  cfg.CatalogIndex,
		batchSize:     batchSize,
	}, nil
}

// IndexCourse 入库一门课程。同名课程已存在时跳过（added=false）。
// 课程目录记录最后写：标题存在与否即该课程完整入库的标记。
func (ix *Indexer) IndexCourse(ctx context.Context, course *CourseDocument) (added bool, chunks int, err error) {
	if course == nil || course.Title == "" {
		return false, 0, fmt.Errorf("%w: course title is required", pkgerrors.ErrInvalidArg)
	}

	if _, err := ix.metadataStore.GetByTitle(ctx, course.Title); err == nil {
		return false, 0, nil
	} else if !errors.Is(err, pkgerrors.ErrNotFound) {
		return false, 0, fmt.Errorf("查询课程目录failed: %w", err)
	}

	texts, metas := ix.collectChunks(course)
	if len(texts) == 0 {
		return false, 0, fmt.Errorf("课程 %q 没有可入库的正文", course.Title)
	}

	courseID := "course-" + uuid.New().String()
	if err := ix.writeChunks(ctx, texts, metas); err != nil {
		return false, 0, err
	}
	if err := ix.writeCatalog(ctx, courseID, course); err != nil {
		return false, 0, err
	}
	if err := ix.writeMetadata(ctx, courseID, course, len(texts)); err != nil {
		return false, 0, err
	}
	return true, len(texts), nil
}

// Clear 清空全部课程数据：目录记录、目录索引与正文分块索引
func (ix *Indexer) Clear(ctx context.Context) error {
	courses, err := ix.metadataStore.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("列出课程failed: %w", err)
	}
	for _, course := range courses {
		if err := ix.metadataStore.Delete(ctx, course.ID); err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
			return fmt.Errorf("删除课程 %q failed: %w", course.Title, err)
		}
	}
	for _, name := range []string{ix.chunkIndex, ix.catalogIndex} {
		if name == "" {
			continue
		}
		if err := ix.vectorStore.DeleteIndex(ctx, name); err != nil {
			ix.logger.Warn("删除向量索引failed", "index", name, "error", err)
		}
	}
	ix.indexReady = false
	return nil
}

// collectChunks 切片全部正文并生成每块的元数据；块序号全课程内连续
func (ix *Indexer) collectChunks(course *CourseDocument) ([]string, []map[string]string) {
	var texts []string
	var metas []map[string]string

	add := func(content string, lesson *LessonContent) {
		for _, chunk := range ix.splitter.Split(content) {
			meta := map[string]string{
				vector.MetaContent:     chunk,
				vector.MetaCourseTitle: course.Title,
				vector.MetaChunkIndex:  strconv.Itoa(len(texts)),
			}
			if course.Link != "" {
				meta[vector.MetaCourseLink] = course.Link
			}
			if lesson != nil {
				meta[vector.MetaLessonNumber] = strconv.Itoa(lesson.Number)
				if lesson.Title != "" {
					meta[vector.MetaLessonTitle] = lesson.Title
				}
				if lesson.Link != "" {
					meta[vector.MetaLessonLink] = lesson.Link
				}
			}
			texts = append(texts, chunk)
			metas = append(metas, meta)
		}
	}

	if course.Intro != "" {
		add(course.Intro, nil)
	}
	for i := range course.Lessons {
		lesson := &course.Lessons[i]
		if lesson.Content == "" {
			continue
		}
		add(lesson.Content, lesson)
	}
	return texts, metas
}

// writeChunks 批量向量化并写入正文分块索引
func (ix *Indexer) writeChunks(ctx context.Context, texts []string, metas []map[string]string) error {
	if err := ix.ensureChunkIndex(ctx); err != nil {
		return err
	}
	for start := 0; start < len(texts); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		values, err := ix.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("切片向量化failed: %w", err)
		}
		if len(values) != end-start {
			return fmt.Errorf("embedding returned %d vectors for %d texts", len(values), end-start)
		}
		batch := make([]*vector.Vector, 0, end-start)
		for k, vec := range values {
			batch = append(batch, &vector.Vector{
				ID:       "chunk-" + uuid.New().String(),
				Values:   vec,
				Metadata: metas[start+k],
			})
		}
		if err := ix.vectorStore.Add(ctx, ix.chunkIndex, batch); err != nil {
			return fmt.Errorf("写入正文分块failed: %w", err)
		}
	}
	return nil
}

func (ix *Indexer) ensureChunkIndex(ctx context.Context) error {
	if ix.indexReady {
		return nil
	}
	err := vector.EnsureIndex(ctx, ix.vectorStore, ix.chunkIndex,
		ix.embedder.Dimension(), "cosine", vector.ChunkIndexFields())
	if err != nil {
		return fmt.Errorf("ensure chunk index: %w", err)
	}
	ix.indexReady = true
	return nil
}

// writeCatalog 写课程目录条目；目录条目的正文即课程标题，课程名语义解析用
func (ix *Indexer) writeCatalog(ctx context.Context, courseID string, course *CourseDocument) error {
	doc := &schema.Document{
		ID:      courseID,
		Content: course.Title,
		MetaData: map[string]any{
			vector.MetaCourseTitle: course.Title,
		},
	}
	if course.Link != "" {
		doc.MetaData[vector.MetaCourseLink] = course.Link
	}
	if _, err := ix.catalog.Store(ctx, []*schema.Document{doc}); err != nil {
		return fmt.Errorf("写入课程目录索引failed: %w", err)
	}
	return nil
}

// writeMetadata 写课程目录记录
func (ix *Indexer) writeMetadata(ctx context.Context, courseID string, course *CourseDocument, chunkCount int) error {
	record := &metadata.Course{
		ID:         courseID,
		Title:      course.Title,
		Link:       course.Link,
		Instructor: course.Instructor,
		ChunkCount: chunkCount,
	}
	for _, lesson := range course.Lessons {
		record.Lessons = append(record.Lessons, metadata.Lesson{
			Number: lesson.Number,
			Title:  lesson.Title,
			Link:   lesson.Link,
		})
	}
	if err := ix.metadataStore.Upsert(ctx, record); err != nil {
		return fmt.Errorf("写入课程目录failed: %w", err)
	}
	return nil
}
