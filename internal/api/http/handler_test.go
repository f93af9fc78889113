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
	"encoding/json"
	"fmt"
	"mime/multipart"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"

	"course-rag/internal/agent"
	"course-rag/internal/model/llm"
	"course-rag/internal/runtime/session"
	"course-rag/internal/search"
	"course-rag/internal/tool"
	pkgerrors "course-rag/pkg/errors"
)

// scriptedAnswerer 固定回答并记录每次收到的 query 与历史条数
type scriptedAnswerer struct {
	answer  *agent.Answer
	err     error
	queries []string
	histLen []int
}

func (s *scriptedAnswerer) Answer(ctx context.Context, query string, history []llm.Message) (*agent.Answer, error) {
	s.queries = append(s.queries, query)
	s.histLen = append(s.histLen, len(history))
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

type fixedStats struct {
	stats *search.Stats
	err   error
}

func (f *fixedStats) Stats(ctx context.Context) (*search.Stats, error) {
	return f.stats, f.err
}

// recordingIngestor 记录收到的上传文件名
type recordingIngestor struct {
	file   string
	added  bool
	chunks int
	err    error
}

func (r *recordingIngestor) IngestUpload(ctx context.Context, header *multipart.FileHeader) (bool, int, error) {
	r.file = header.Filename
	if r.err != nil {
		return false, 0, r.err
	}
	return r.added, r.chunks, nil
}

func newTestSessions() *session.Manager {
	return session.NewManager(session.NewMemoryStore(), 0)
}

func TestQuery_AnswerWithSources(t *testing.T) {
	answerer := &scriptedAnswerer{answer: &agent.Answer{
		Text:        "MCP is a protocol for connecting models to tools.",
		Sources:     []tool.Source{{Text: "MCP - Lesson 1", Link: "https://example.com/mcp/1"}},
		Termination: agent.TerminationNoToolUse,
	}}
	handler := NewHandler(answerer, nil)
	handler.SetSessions(newTestSessions())

	h := server.Default(server.WithHostPorts(":0"))
	h.POST("/api/query", func(ctx context.Context, c *app.RequestContext) {
		handler.Query(ctx, c)
	})

	body := []byte(`{"query": "What is MCP?"}`)
	w := ut.PerformRequest(h.Engine, "POST", "/api/query", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("Query status: got %d, body %s", resp.StatusCode(), resp.Body())
	}
	var got QueryResponse
	if err := json.Unmarshal(resp.Body(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Answer != "MCP is a protocol for connecting models to tools." {
		t.Errorf("answer: %q", got.Answer)
	}
	if len(got.Sources) != 1 || got.Sources[0].Text != "MCP - Lesson 1" || got.Sources[0].Link != "https://example.com/mcp/1" {
		t.Errorf("sources: %+v", got.Sources)
	}
	if got.SessionID == "" {
		t.Errorf("session_id should be assigned")
	}
	if len(answerer.queries) != 1 || answerer.queries[0] != "What is MCP?" {
		t.Errorf("answerer queries: %v", answerer.queries)
	}
}

func TestQuery_SessionHistoryThreaded(t *testing.T) {
	answerer := &scriptedAnswerer{answer: &agent.Answer{Text: "answer"}}
	handler := NewHandler(answerer, nil)
	handler.SetSessions(newTestSessions())

	h := server.Default(server.WithHostPorts(":0"))
	h.POST("/api/query", func(ctx context.Context, c *app.RequestContext) {
		handler.Query(ctx, c)
	})

	body := []byte(`{"query": "first question"}`)
	w := ut.PerformRequest(h.Engine, "POST", "/api/query", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	var first QueryResponse
	if err := json.Unmarshal(w.Result().Body(), &first); err != nil {
		t.Fatalf("unmarshal first response: %v", err)
	}
	if first.SessionID == "" {
		t.Fatalf("first response missing session_id")
	}

	body = []byte(fmt.Sprintf(`{"query": "second question", "session_id": %q}`, first.SessionID))
	w = ut.PerformRequest(h.Engine, "POST", "/api/query", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	var second QueryResponse
	if err := json.Unmarshal(w.Result().Body(), &second); err != nil {
		t.Fatalf("unmarshal second response: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session_id changed: %q -> %q", first.SessionID, second.SessionID)
	}

	// 首问无历史；次问携带上一轮问答（user+assistant 两条）
	if len(answerer.histLen) != 2 {
		t.Fatalf("answerer calls: %d", len(answerer.histLen))
	}
	if answerer.histLen[0] != 0 {
		t.Errorf("first call history: got %d, want 0", answerer.histLen[0])
	}
	if answerer.histLen[1] != 2 {
		t.Errorf("second call history: got %d, want 2", answerer.histLen[1])
	}
}

func TestQuery_EmptyQuery(t *testing.T) {
	handler := NewHandler(&scriptedAnswerer{answer: &agent.Answer{Text: "x"}}, nil)
	handler.SetSessions(newTestSessions())

	h := server.Default(server.WithHostPorts(":0"))
	h.POST("/api/query", func(ctx context.Context, c *app.RequestContext) {
		handler.Query(ctx, c)
	})

	body := []byte(`{"query": "   "}`)
	w := ut.PerformRequest(h.Engine, "POST", "/api/query", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	resp := w.Result()
	if resp.StatusCode() != 400 {
		t.Errorf("empty query status: got %d, want 400", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("query is required")) {
		t.Errorf("empty query body: %s", resp.Body())
	}
}

func TestQuery_GenerationFailure(t *testing.T) {
	answerer := &scriptedAnswerer{err: fmt.Errorf("%w: upstream timeout", pkgerrors.ErrGeneration)}
	sessions := newTestSessions()
	handler := NewHandler(answerer, nil)
	handler.SetSessions(sessions)

	h := server.Default(server.WithHostPorts(":0"))
	h.POST("/api/query", func(ctx context.Context, c *app.RequestContext) {
		handler.Query(ctx, c)
	})

	body := []byte(`{"query": "q", "session_id": "session-fail"}`)
	w := ut.PerformRequest(h.Engine, "POST", "/api/query", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	resp := w.Result()
	if resp.StatusCode() != 500 {
		t.Fatalf("generation failure status: got %d, want 500", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("generation failed")) {
		t.Errorf("generation failure body: %s", resp.Body())
	}

	// 失败的提问不落入会话历史
	msgs, err := sessions.History(context.Background(), "session-fail")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("failed query recorded in history: %d messages", len(msgs))
	}
}

func TestCourses(t *testing.T) {
	handler := NewHandler(nil, &fixedStats{stats: &search.Stats{
		CourseCount:  2,
		CourseTitles: []string{"MCP: Build Rich-Context AI Apps", "Advanced Retrieval"},
	}})

	h := server.Default(server.WithHostPorts(":0"))
	h.GET("/api/courses", func(ctx context.Context, c *app.RequestContext) {
		handler.Courses(ctx, c)
	})

	w := ut.PerformRequest(h.Engine, "GET", "/api/courses", nil)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("Courses status: got %d", resp.StatusCode())
	}
	var got CoursesResponse
	if err := json.Unmarshal(resp.Body(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.TotalCourses != 2 {
		t.Errorf("total_courses: got %d, want 2", got.TotalCourses)
	}
	if len(got.CourseTitles) != 2 || got.CourseTitles[0] != "MCP: Build Rich-Context AI Apps" {
		t.Errorf("course_titles: %v", got.CourseTitles)
	}
}

func TestUploadDocument(t *testing.T) {
	ing := &recordingIngestor{added: true, chunks: 7}
	handler := NewHandler(nil, nil)
	handler.SetIngestor(ing)

	h := server.Default(server.WithHostPorts(":0"))
	h.POST("/api/documents/upload", func(ctx context.Context, c *app.RequestContext) {
		handler.UploadDocument(ctx, c)
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "mcp.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte("Course Title: MCP\n\nLesson 0: Introduction\nWelcome.")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	w := ut.PerformRequest(h.Engine, "POST", "/api/documents/upload",
		&ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("UploadDocument status: got %d, body %s", resp.StatusCode(), resp.Body())
	}
	var got UploadResponse
	if err := json.Unmarshal(resp.Body(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.File != "mcp.txt" || !got.Added || got.Chunks != 7 {
		t.Errorf("upload response: %+v", got)
	}
	if ing.file != "mcp.txt" {
		t.Errorf("ingestor received file: %q", ing.file)
	}
}

func TestUploadDocument_UnsupportedType(t *testing.T) {
	ing := &recordingIngestor{err: fmt.Errorf("%w: 不支持的文档类型: notes.json", pkgerrors.ErrInvalidArg)}
	handler := NewHandler(nil, nil)
	handler.SetIngestor(ing)

	h := server.Default(server.WithHostPorts(":0"))
	h.POST("/api/documents/upload", func(ctx context.Context, c *app.RequestContext) {
		handler.UploadDocument(ctx, c)
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "notes.json")
	fw.Write([]byte("{}"))
	mw.Close()

	w := ut.PerformRequest(h.Engine, "POST", "/api/documents/upload",
		&ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()})
	resp := w.Result()
	if resp.StatusCode() != 400 {
		t.Errorf("unsupported type status: got %d, want 400", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("不支持的文档类型")) {
		t.Errorf("unsupported type body: %s", resp.Body())
	}
}

func TestDeleteSession(t *testing.T) {
	sessions := newTestSessions()
	ctx := context.Background()
	if err := sessions.AddExchange(ctx, "session-gone", "q", "a"); err != nil {
		t.Fatalf("AddExchange: %v", err)
	}
	handler := NewHandler(nil, nil)
	handler.SetSessions(sessions)

	h := server.Default(server.WithHostPorts(":0"))
	h.DELETE("/api/sessions/:id", func(ctx context.Context, c *app.RequestContext) {
		handler.DeleteSession(ctx, c)
	})

	w := ut.PerformRequest(h.Engine, "DELETE", "/api/sessions/session-gone", nil)
	if got := w.Result().StatusCode(); got != 204 {
		t.Fatalf("DeleteSession status: got %d, want 204", got)
	}
	s, err := sessions.Get(ctx, "session-gone")
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if s != nil {
		t.Errorf("session still present after delete: %+v", s)
	}

	// 幂等：再次删除同样成功
	w = ut.PerformRequest(h.Engine, "DELETE", "/api/sessions/session-gone", nil)
	if got := w.Result().StatusCode(); got != 204 {
		t.Errorf("repeat DeleteSession status: got %d, want 204", got)
	}
}

func TestHealthCheck(t *testing.T) {
	handler := NewHandler(nil, nil)
	h := server.Default(server.WithHostPorts(":0"))
	h.GET("/api/health", func(ctx context.Context, c *app.RequestContext) {
		handler.HealthCheck(ctx, c)
	})
	w := ut.PerformRequest(h.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Errorf("HealthCheck status: got %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("ok")) {
		t.Errorf("HealthCheck body: %s", resp.Body())
	}
}

func TestMetrics(t *testing.T) {
	handler := NewHandler(nil, nil)
	h := server.Default(server.WithHostPorts(":0"))
	h.GET("/metrics", func(ctx context.Context, c *app.RequestContext) {
		handler.Metrics(ctx, c)
	})
	w := ut.PerformRequest(h.Engine, "GET", "/metrics", nil)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("Metrics status: got %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("courserag_query_rounds")) {
		t.Errorf("Metrics body missing registered metric: %.200s", resp.Body())
	}
}
