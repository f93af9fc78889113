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
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/jwt"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"course-rag/internal/api/http/middleware"
)

// Router HTTP 路由器。Set* 均需在 Build 之前调用，
// 中间件在路由注册前挂载才会进入各路由的处理链。
type Router struct {
	handler *Handler
	mw      *middleware.Middleware

	jwt          *jwt.HertzJWTMiddleware
	tracing      *hertztracing.Config
	corsEnabled  bool
	corsOrigins  []string
	rateLimitRPS int
}

// NewRouter 创建 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, mw: mw}
}

// SetJWT 启用管理路由的 JWT 认证（文档上传），并开放 /api/auth 登录与续签
func (r *Router) SetJWT(auth *jwt.HertzJWTMiddleware) {
	r.jwt = auth
}

// SetTracing 启用服务端链路追踪中间件
func (r *Router) SetTracing(cfg *hertztracing.Config) {
	r.tracing = cfg
}

// SetCORS 启用跨域放行；origins 为空表示任意来源
func (r *Router) SetCORS(origins []string) {
	r.corsEnabled = true
	r.corsOrigins = origins
}

// SetRateLimit 启用进程级速率限制
func (r *Router) SetRateLimit(rps int) {
	r.rateLimitRPS = rps
}

// Build 构建 Hertz 服务并注册全部路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	options := append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(options...)

	if r.tracing != nil {
		h.Use(hertztracing.ServerMiddleware(r.tracing))
	}
	h.Use(r.mw.AccessLog())
	if r.corsEnabled {
		h.Use(r.mw.CORS(r.corsOrigins))
	}
	if r.rateLimitRPS > 0 {
		h.Use(r.mw.RateLimit(r.rateLimitRPS))
	}

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	api.POST("/query", r.handler.Query)
	api.GET("/courses", r.handler.Courses)
	api.DELETE("/sessions/:id", r.handler.DeleteSession)

	documents := api.Group("/documents")
	if r.jwt != nil {
		api.POST("/auth/login", r.jwt.LoginHandler)
		api.GET("/auth/refresh", r.jwt.RefreshHandler)
		documents.Use(r.jwt.MiddlewareFunc())
	}
	documents.POST("/upload", r.handler.UploadDocument)

	h.GET("/metrics", r.handler.Metrics)

	return h
}
