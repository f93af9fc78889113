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
	"mime/multipart"

	"course-rag/pkg/log"
	"course-rag/pkg/metrics"
)

// Summary 一次批量入库的汇总
type Summary struct {
	Courses int `json:"courses"` // 新入库课程数
	Chunks  int `json:"chunks"`  // 新写入分块数
	Skipped int `json:"skipped"` // 已存在而跳过的文档数
	Failed  int `json:"failed"`  // 入库失败的文档数
}

// Pipeline 课程文档入库管线：加载 → 解析 → 切片 → 向量化 → 写入
type Pipeline struct {
	loader  *Loader
	parser  *Parser
	indexer *Indexer
	logger  *log.Logger
}

// NewPipeline 创建入库管线
func NewPipeline(indexer *Indexer, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Nop()
	}
	return &Pipeline{
		loader:  NewLoader(),
		parser:  NewParser(),
		indexer: indexer,
		logger:  logger,
	}
}

// IngestDir 入库目录下全部课程文档；单个文档失败记入 Failed，不中断整体
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (*Summary, error) {
	docs, err := p.loader.LoadDir(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, doc := range docs {
		added, chunks, err := p.IngestDocument(ctx, doc)
		if err != nil {
			summary.Failed++
			p.logger.Warn("课程文档入库failed", "file", doc.Name, "error", err)
			continue
		}
		if !added {
			summary.Skipped++
			continue
		}
		summary.Courses++
		summary.Chunks += chunks
	}
	p.logger.Info("课程目录入库completed", "dir", dir,
		"courses", summary.Courses, "chunks", summary.Chunks,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// IngestPath 入库单个文件
func (p *Pipeline) IngestPath(ctx context.Context, path string) (added bool, chunks int, err error) {
	doc, err := p.loader.LoadPath(path)
	if err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
		return false, 0, err
	}
	return p.IngestDocument(ctx, doc)
}

// IngestUpload 入库一个上传文件（multipart）
func (p *Pipeline) IngestUpload(ctx context.Context, header *multipart.FileHeader) (added bool, chunks int, err error) {
	doc, err := p.loader.LoadFileHeader(header)
	if err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
		return false, 0, err
	}
	return p.IngestDocument(ctx, doc)
}

// IngestDocument 入库一份已加载的文档
func (p *Pipeline) IngestDocument(ctx context.Context, doc *Document) (added bool, chunks int, err error) {
	course, err := p.parser.Parse(doc)
	if err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
		return false, 0, err
	}
	added, chunks, err = p.indexer.IndexCourse(ctx, course)
	if err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
		return false, 0, err
	}
	if !added {
		metrics.IngestDocumentsTotal.WithLabelValues("skipped").Inc()
		p.logger.Info("课程已存在，跳过", "course", course.Title, "file", doc.Name)
		return false, 0, nil
	}
	metrics.IngestDocumentsTotal.WithLabelValues("ok").Inc()
	metrics.IngestChunksTotal.Add(float64(chunks))
	p.logger.Info("课程入库completed", "course", course.Title,
		"lessons", len(course.Lessons), "chunks", chunks)
	return true, chunks, nil
}

// Clear 清空全部课程数据（目录记录与向量索引）
func (p *Pipeline) Clear(ctx context.Context) error {
	return p.indexer.Clear(ctx)
}
