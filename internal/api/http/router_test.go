package http

import (
	"bytes"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"

	"course-rag/internal/agent"
	"course-rag/internal/api/http/middleware"
	"course-rag/internal/search"
)

func buildRouterForTest(t *testing.T, withJWT bool) *server.Hertz {
	t.Helper()
	answerer := &scriptedAnswerer{answer: &agent.Answer{Text: "ok"}}
	handler := NewHandler(answerer, &fixedStats{stats: &search.Stats{CourseCount: 0, CourseTitles: []string{}}})
	handler.SetSessions(newTestSessions())
	r := NewRouter(handler, middleware.NewMiddleware())
	if withJWT {
		auth, err := middleware.NewJWTAuth([]byte("test-key"), time.Hour, time.Hour)
		if err != nil {
			t.Fatalf("NewJWTAuth: %v", err)
		}
		r.SetJWT(auth)
	}
	return r.Build(":0")
}

func TestRouter_CoreRoutes(t *testing.T) {
	s := buildRouterForTest(t, false)

	w := ut.PerformRequest(s.Engine, "GET", "/api/health", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Errorf("GET /api/health status = %d, want 200", got)
	}

	w = ut.PerformRequest(s.Engine, "GET", "/api/courses", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Errorf("GET /api/courses status = %d, want 200", got)
	}

	w = ut.PerformRequest(s.Engine, "GET", "/metrics", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Errorf("GET /metrics status = %d, want 200", got)
	}

	// 路由存在，请求体非法时是 400 而非 404
	body := []byte(`not json`)
	w = ut.PerformRequest(s.Engine, "POST", "/api/query", &ut.Body{Body: bytes.NewReader(body), Len: len(body)})
	if got := w.Result().StatusCode(); got != 400 {
		t.Errorf("POST /api/query malformed body status = %d, want 400", got)
	}

	w = ut.PerformRequest(s.Engine, "DELETE", "/api/sessions/session-x", nil)
	if got := w.Result().StatusCode(); got != 204 {
		t.Errorf("DELETE /api/sessions/:id status = %d, want 204", got)
	}

	w = ut.PerformRequest(s.Engine, "GET", "/api/unknown", nil)
	if got := w.Result().StatusCode(); got != 404 {
		t.Errorf("GET /api/unknown status = %d, want 404", got)
	}
}

func TestRouter_UploadWithoutJWT(t *testing.T) {
	s := buildRouterForTest(t, false)

	// 未启用 JWT 时上传路由直接可达；未注入 ingestor 返回 503 而非 401/404
	w := ut.PerformRequest(s.Engine, "POST", "/api/documents/upload", nil)
	if got := w.Result().StatusCode(); got != 503 {
		t.Errorf("POST /api/documents/upload status = %d, want 503", got)
	}

	// 登录路由仅在启用 JWT 时注册
	body := []byte(`{"username":"u","password":"p"}`)
	w = ut.PerformRequest(s.Engine, "POST", "/api/auth/login", &ut.Body{Body: bytes.NewReader(body), Len: len(body)})
	if got := w.Result().StatusCode(); got != 404 {
		t.Errorf("POST /api/auth/login status = %d, want 404 when jwt disabled", got)
	}
}

func TestRouter_JWTGuardsUpload(t *testing.T) {
	s := buildRouterForTest(t, true)

	w := ut.PerformRequest(s.Engine, "POST", "/api/documents/upload", nil)
	if got := w.Result().StatusCode(); got != 401 {
		t.Errorf("POST /api/documents/upload without token status = %d, want 401", got)
	}

	// 未配置 ADMIN_USERNAME / ADMIN_PASSWORD 时任何登录都被拒绝
	body := []byte(`{"username":"admin","password":"guess"}`)
	w = ut.PerformRequest(s.Engine, "POST", "/api/auth/login", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	if got := w.Result().StatusCode(); got != 401 {
		t.Errorf("POST /api/auth/login with unknown credentials status = %d, want 401", got)
	}

	// 其余路由不受管理端认证影响
	w = ut.PerformRequest(s.Engine, "GET", "/api/health", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Errorf("GET /api/health status = %d, want 200", got)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	handler := NewHandler(nil, nil)
	r := NewRouter(handler, middleware.NewMiddleware())
	r.SetCORS(nil)
	s := r.Build(":0")

	w := ut.PerformRequest(s.Engine, "OPTIONS", "/api/query", nil,
		ut.Header{Key: "Origin", Value: "https://example.com"})
	resp := w.Result()
	if got := resp.StatusCode(); got != 204 {
		t.Fatalf("OPTIONS /api/query status = %d, want 204", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
