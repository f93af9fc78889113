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

package api

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	hertzapp "github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"course-rag/internal/agent"
	"course-rag/internal/api/http"
	"course-rag/internal/api/http/middleware"
	"course-rag/internal/app"
	"course-rag/internal/einoext"
	"course-rag/internal/ingest"
	"course-rag/internal/model/embedding"
	"course-rag/internal/model/llm"
	"course-rag/internal/runtime/session"
	"course-rag/internal/search"
	"course-rag/internal/tool"
	"course-rag/internal/tool/builtin"
	"course-rag/internal/tool/registry"
	"course-rag/pkg/metrics"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：装配检索、问答编排、会话与入库，构建 HTTP Router
type App struct {
	bootstrap *app.Bootstrap
	router    *http.Router
	pipeline  *ingest.Pipeline

	hertz        *server.Hertz
	metricsSrv   *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用（由 cmd/api 调用）。
// Embedding 未配置时检索、入库与问答路由降级为 503，目录与健康路由仍然可用。
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	ctx := context.Background()
	cfg := bootstrap.Config
	logger := bootstrap.Logger

	// 正文分块索引名归一：search 与 ingest 必须落在同一个索引上
	if cfg.Search.ChunkIndex == "" && cfg.Storage.Vector.Collection != "" {
		cfg.Search.ChunkIndex = cfg.Storage.Vector.Collection
	}

	var svc *search.Service
	var orchestrator *agent.Orchestrator
	var pipeline *ingest.Pipeline
	if bootstrap.Embedder != nil {
		einoEmb := embedding.NewEinoEmbedder(bootstrap.Embedder)
		catalogRetriever, err := einoext.NewCatalogRetriever(ctx, cfg.Storage.Vector, bootstrap.VectorStore, einoEmb)
		if err != nil {
			return nil, fmt.Errorf("初始化课程目录检索器failed: %w", err)
		}
		svc = search.NewService(bootstrap.VectorStore, bootstrap.MetadataStore, catalogRetriever,
			bootstrap.Embedder, bootstrap.CacheStore, logger, cfg.Search)

		llmClient, err := llm.NewClient(ctx, cfg)
		if err != nil {
			logger.Warn("LLM 未配置，问答路由不可用", "error", err)
		} else {
			limiter := llm.NewRateLimiter(cfg.RateLimits.LLM, nil)
			recorder := tool.NewSourceRecorder()
			reg := registry.New()
			builtin.RegisterBuiltin(reg, svc, recorder)
			orchestrator = agent.New(llm.NewRateLimitedClient(llmClient, limiter), reg, recorder, cfg.Agent, logger)
		}

		pipeline, err = app.NewIngestPipeline(ctx, bootstrap)
		if err != nil {
			return nil, err
		}
	}

	sessionStore, err := session.NewStore(ctx, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("初始化会话存储failed: %w", err)
	}
	sessions := session.NewManager(sessionStore, cfg.Session.MaxHistory)

	// 组件缺席时传接口零值，避免 typed-nil 绕过 Handler 的就绪检查
	var answerer http.Answerer
	if orchestrator != nil {
		answerer = orchestrator
	}
	var stats http.CourseStats
	if svc != nil {
		stats = svc
	}
	handler := http.NewHandler(answerer, stats)
	handler.SetSessions(sessions)
	if pipeline != nil {
		handler.SetIngestor(pipeline)
	}

	mw := middleware.NewMiddleware()
	router := http.NewRouter(handler, mw)
	if cfg.API.CORS.Enable {
		router.SetCORS(cfg.API.CORS.AllowOrigins)
	}
	if cfg.API.Middleware.RateLimit && cfg.API.Middleware.RateLimitRPS > 0 {
		router.SetRateLimit(cfg.API.Middleware.RateLimitRPS)
	}
	if cfg.API.Middleware.Auth && cfg.API.Middleware.JWTKey != "" {
		timeout := parseDuration(cfg.API.Middleware.JWTTimeout, time.Hour)
		maxRefresh := parseDuration(cfg.API.Middleware.JWTMaxRefresh, time.Hour)
		jwtAuth, err := middleware.NewJWTAuth([]byte(cfg.API.Middleware.JWTKey), timeout, maxRefresh)
		if err != nil {
			logger.Warn("JWT 初始化失败，将跳过认证", "error", err)
		} else {
			router.SetJWT(jwtAuth)
			logger.Info("JWT 认证已启用")
		}
	}

	return &App{
		bootstrap: bootstrap,
		router:    router,
		pipeline:  pipeline,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.bootstrap.Config
	logger := a.bootstrap.Logger
	logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 日志配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件failed: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	switch cfg.Log.Level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hertzLogger := hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	)
	hlog.SetLogger(hertzLogger)

	// 可选：启用链路追踪（OpenTelemetry）
	if cfg.Monitoring.Tracing.Enable {
		serviceName := cfg.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "course-rag-api"
		}
		exportEndpoint := cfg.Monitoring.Tracing.ExportEndpoint
		if exportEndpoint == "" {
			exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if exportEndpoint != "" {
			opts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(exportEndpoint),
			}
			if cfg.Monitoring.Tracing.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			p := provider.NewOpenTelemetryProvider(opts...)
			a.otelProvider = p
			tracerOpt, tracerCfg := hertztracing.NewServerTracer()
			a.router.SetTracing(tracerCfg)
			a.hertz = a.router.Build(addr, tracerOpt)
			logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
		} else {
			a.hertz = a.router.Build(addr)
		}
	} else {
		a.hertz = a.router.Build(addr)
	}

	// 可选：独立指标端口（主端口启用认证等场景）
	if cfg.Monitoring.Prometheus.Enable && cfg.Monitoring.Prometheus.Port > 0 {
		a.metricsSrv = newMetricsServer(cfg.Monitoring.Prometheus.Port)
		go func() {
			_ = a.metricsSrv.Run()
		}()
		logger.Info("独立指标端口已启用", "port", cfg.Monitoring.Prometheus.Port)
	}

	// 启动时自动入库配置的课程文档目录
	if a.pipeline != nil && cfg.Storage.Ingest.DocsDir != "" {
		summary, err := a.pipeline.IngestDir(context.Background(), cfg.Storage.Ingest.DocsDir)
		if err != nil {
			logger.Warn("启动自动入库失败", "dir", cfg.Storage.Ingest.DocsDir, "error", err)
		} else {
			logger.Info("启动自动入库completed", "dir", cfg.Storage.Ingest.DocsDir,
				"courses", summary.Courses, "chunks", summary.Chunks,
				"skipped", summary.Skipped, "failed", summary.Failed)
		}
	}

	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	return a.bootstrap.Close()
}

// newMetricsServer 在独立端口暴露 /metrics
func newMetricsServer(port int) *server.Hertz {
	h := server.New(server.WithHostPorts(fmt.Sprintf(":%d", port)))
	h.GET("/metrics", func(c context.Context, ctx *hertzapp.RequestContext) {
		var buf bytes.Buffer
		if err := metrics.WritePrometheus(&buf); err != nil {
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "collect metrics failed"})
			return
		}
		ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
	})
	return h
}

// parseDuration 解析时长字符串，无效或空时返回 defaultVal
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
