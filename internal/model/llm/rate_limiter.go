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

package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"course-rag/pkg/config"
)

// RateLimiter LLM Provider 维度的限流器，支持 token budget + RPS + 并发控制
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*providerLimiter // provider -> limiter
	defaults config.LLMRateLimitConfig
}

type providerLimiter struct {
	requestLimiter *rate.Limiter // RPS 限流器
	tokenLimiter   *rate.Limiter // Token 限流器
	semaphore      chan struct{} // 并发控制
	config         config.LLMRateLimitConfig

	// Token 统计
	mu               sync.Mutex
	tokensUsedMinute int
	minuteStart      time.Time
}

// NewRateLimiter 创建 LLM 限流器。configs 按 provider 给出配额，未配置的 provider 使用 defaults。
func NewRateLimiter(configs map[string]config.LLMRateLimitConfig, defaults *config.LLMRateLimitConfig) *RateLimiter {
	if defaults == nil {
		defaults = &config.LLMRateLimitConfig{
			TokensPerMinute:   90000, // 默认每分钟 90K tokens
			RequestsPerMinute: 3500,  // 默认每分钟 3500 次请求
			MaxConcurrent:     50,    // 默认最大并发 50
		}
	}

	limiter := &RateLimiter{
		limiters: make(map[string]*providerLimiter),
		defaults: *defaults,
	}
	for provider, cfg := range configs {
		limiter.addProviderLimiter(provider, cfg)
	}
	return limiter
}

// addProviderLimiter 添加 provider 限流器
func (l *RateLimiter) addProviderLimiter(provider string, cfg config.LLMRateLimitConfig) {
	limiter := &providerLimiter{
		config:      cfg,
		minuteStart: time.Now(),
	}

	// RPS 限流器（转换为每秒）
	if cfg.RequestsPerMinute > 0 {
		rps := cfg.RequestsPerMinute / 60.0
		burst := int(cfg.RequestsPerMinute / 60.0 * 2) // burst = 2 秒的配额
		if burst < 1 {
			burst = 1
		}
		limiter.requestLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	// Token 限流器（转换为每秒）
	if cfg.TokensPerMinute > 0 {
		tps := float64(cfg.TokensPerMinute) / 60.0
		burst := cfg.TokensPerMinute / 60 * 2 // burst = 2 秒的配额
		if burst < 1 {
			burst = 1
		}
		limiter.tokenLimiter = rate.NewLimiter(rate.Limit(tps), burst)
	}

	// 并发控制
	if cfg.MaxConcurrent > 0 {
		limiter.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}

	l.mu.Lock()
	l.limiters[provider] = limiter
	l.mu.Unlock()
}

// getOrCreate 获取 provider 限流器，不存在时按默认配额创建
func (l *RateLimiter) getOrCreate(provider string) *providerLimiter {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.addProviderLimiter(provider, l.defaults)
	l.mu.RLock()
	limiter = l.limiters[provider]
	l.mu.RUnlock()
	return limiter
}

// Wait 等待获取执行许可（阻塞直到可以执行）
func (l *RateLimiter) Wait(ctx context.Context, provider string, estimatedTokens int) error {
	limiter := l.getOrCreate(provider)

	// Request 限流
	if limiter.requestLimiter != nil {
		if err := limiter.requestLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit wait failed: %w", err)
		}
	}

	// Token budget 限流（预扣 tokens）
	if limiter.tokenLimiter != nil && estimatedTokens > 0 {
		if err := limiter.tokenLimiter.WaitN(ctx, estimatedTokens); err != nil {
			return fmt.Errorf("token budget wait failed: %w", err)
		}
	}

	// 并发限流
	if limiter.semaphore != nil {
		select {
		case limiter.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	limiter.recordTokens(estimatedTokens)
	return nil
}

// Release 释放并发 slot（在 LLM 调用完成后调用）
func (l *RateLimiter) Release(provider string) {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if exists && limiter.semaphore != nil {
		select {
		case <-limiter.semaphore:
		default:
			// semaphore 已空，无需释放
		}
	}
}

// RecordTokenUsage 记录实际使用的 tokens（用于精确统计）
func (l *RateLimiter) RecordTokenUsage(provider string, actualTokens int) {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if exists {
		limiter.recordTokens(actualTokens)
	}
}

// recordTokens 累计分钟内 token 用量，跨分钟时重置
func (p *providerLimiter) recordTokens(tokens int) {
	p.mu.Lock()
	now := time.Now()
	if now.Sub(p.minuteStart) > time.Minute {
		p.tokensUsedMinute = tokens
		p.minuteStart = now
	} else {
		p.tokensUsedMinute += tokens
	}
	p.mu.Unlock()
}

// GetStats 获取限流统计信息
func (l *RateLimiter) GetStats(provider string) map[string]interface{} {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if !exists {
		return nil
	}

	limiter.mu.Lock()
	tokensUsed := limiter.tokensUsedMinute
	limiter.mu.Unlock()

	stats := map[string]interface{}{
		"requests_per_minute": limiter.config.RequestsPerMinute,
		"tokens_per_minute":   limiter.config.TokensPerMinute,
		"tokens_used_minute":  tokensUsed,
		"max_concurrent":      limiter.config.MaxConcurrent,
	}
	if limiter.semaphore != nil {
		stats["current_concurrent"] = len(limiter.semaphore)
		stats["available_slots"] = cap(limiter.semaphore) - len(limiter.semaphore)
	}
	return stats
}

// Allow 检查是否允许执行（非阻塞）
func (l *RateLimiter) Allow(provider string, estimatedTokens int) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if !exists {
		return true
	}

	if limiter.requestLimiter != nil && !limiter.requestLimiter.Allow() {
		return false
	}
	if limiter.tokenLimiter != nil && estimatedTokens > 0 {
		if !limiter.tokenLimiter.AllowN(time.Now(), estimatedTokens) {
			return false
		}
	}
	if limiter.semaphore != nil {
		select {
		case limiter.semaphore <- struct{}{}:
			return true
		default:
			return false
		}
	}
	return true
}
