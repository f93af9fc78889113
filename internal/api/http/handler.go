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

package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"course-rag/internal/agent"
	"course-rag/internal/model/llm"
	"course-rag/internal/runtime/session"
	"course-rag/internal/search"
	"course-rag/internal/tool"
	pkgerrors "course-rag/pkg/errors"
	"course-rag/pkg/metrics"
	"course-rag/pkg/tracing"
)

// Answerer 处理一次提问（由 agent.Orchestrator 实现）
type Answerer interface {
	Answer(ctx context.Context, query string, history []llm.Message) (*agent.Answer, error)
}

// CourseStats 课程目录统计（由 search.Service 实现）
type CourseStats interface {
	Stats(ctx context.Context) (*search.Stats, error)
}

// DocumentIngestor 上传文档入库（由 ingest.Pipeline 实现）
type DocumentIngestor interface {
	IngestUpload(ctx context.Context, header *multipart.FileHeader) (added bool, chunks int, err error)
}

// Handler HTTP 请求处理器
type Handler struct {
	answerer Answerer
	stats    CourseStats
	sessions *session.Manager
	ingestor DocumentIngestor
}

// NewHandler 创建 HTTP 请求处理器；会话管理与文档入库为可选依赖，经 Set* 注入
func NewHandler(answerer Answerer, stats CourseStats) *Handler {
	return &Handler{answerer: answerer, stats: stats}
}

// SetSessions 注入会话管理器（/api/query 的历史读写与 /api/sessions 需要）
func (h *Handler) SetSessions(m *session.Manager) {
	h.sessions = m
}

// SetIngestor 注入文档入库管道（/api/documents/upload 需要）
func (h *Handler) SetIngestor(ing DocumentIngestor) {
	h.ingestor = ing
}

// QueryRequest 提问请求体
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// QueryResponse 提问响应：回答正文、检索来源与会话 ID
type QueryResponse struct {
	Answer    string        `json:"answer"`
	Sources   []tool.Source `json:"sources"`
	SessionID string        `json:"session_id"`
}

// CoursesResponse 课程目录统计响应
type CoursesResponse struct {
	TotalCourses int64    `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// UploadResponse 文档上传入库响应；Added 为 false 表示课程已存在、本次跳过
type UploadResponse struct {
	File   string `json:"file"`
	Added  bool   `json:"added"`
	Chunks int    `json:"chunks"`
}

// Query 处理一次提问
// POST /api/query
func (h *Handler) Query(c context.Context, ctx *app.RequestContext) {
	if h.answerer == nil || h.sessions == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{
			"error": "query service is not ready",
		})
		return
	}
	var req QueryRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "invalid request",
		})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "query is required",
		})
		return
	}

	sess, err := h.sessions.GetOrCreate(c, req.SessionID)
	if err != nil {
		hlog.CtxErrorf(c, "获取会话失败: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "session lookup failed",
		})
		return
	}
	history, err := h.sessions.History(c, sess.ID)
	if err != nil {
		hlog.CtxErrorf(c, "读取会话历史失败: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "session history lookup failed",
		})
		return
	}

	qctx, span := tracing.StartQuerySpan(c, sess.ID)
	answer, err := h.answerer.Answer(qctx, query, history)
	span.End()
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrInvalidArg) {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		// 生成失败按失败呈现，不编造回答
		hlog.CtxErrorf(c, "提问处理失败: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := h.sessions.AddExchange(c, sess.ID, query, answer.Text); err != nil {
		// 历史写入失败不影响本次回答
		hlog.CtxWarnf(c, "写入会话历史失败: %v", err)
	}

	sources := answer.Sources
	if sources == nil {
		sources = []tool.Source{}
	}
	ctx.JSON(consts.StatusOK, QueryResponse{
		Answer:    answer.Text,
		Sources:   sources,
		SessionID: sess.ID,
	})
}

// Courses 课程目录统计
// GET /api/courses
func (h *Handler) Courses(c context.Context, ctx *app.RequestContext) {
	if h.stats == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{
			"error": "course analytics is not ready",
		})
		return
	}
	stats, err := h.stats.Stats(c)
	if err != nil {
		hlog.CtxErrorf(c, "课程统计失败: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	titles := stats.CourseTitles
	if titles == nil {
		titles = []string{}
	}
	ctx.JSON(consts.StatusOK, CoursesResponse{
		TotalCourses: stats.CourseCount,
		CourseTitles: titles,
	})
}

// UploadDocument 上传一份课程文档并入库
// POST /api/documents/upload（multipart，字段名 file）
func (h *Handler) UploadDocument(c context.Context, ctx *app.RequestContext) {
	if h.ingestor == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{
			"error": "document ingestion is not configured",
		})
		return
	}
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "file is required",
		})
		return
	}
	added, chunks, err := h.ingestor.IngestUpload(c, header)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrInvalidArg) {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		hlog.CtxErrorf(c, "上传文档入库失败: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	ctx.JSON(consts.StatusOK, UploadResponse{
		File:   header.Filename,
		Added:  added,
		Chunks: chunks,
	})
}

// DeleteSession 清除一个会话的历史（幂等）
// DELETE /api/sessions/:id
func (h *Handler) DeleteSession(c context.Context, ctx *app.RequestContext) {
	if h.sessions == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{
			"error": "session manager is not configured",
		})
		return
	}
	id := ctx.Param("id")
	if id == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "session_id is required",
		})
		return
	}
	if err := h.sessions.Clear(c, id); err != nil {
		hlog.CtxErrorf(c, "清除会话失败: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	ctx.Status(consts.StatusNoContent)
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "course-rag",
	})
}

// Metrics Prometheus 指标（文本格式）
// GET /metrics
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		hlog.CtxErrorf(c, "导出指标失败: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "collect metrics failed"})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
