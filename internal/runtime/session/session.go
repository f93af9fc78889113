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

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"course-rag/internal/model/llm"
)

// Exchange 一组完整问答：用户提问与最终回答
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// Session 会话：按时间排列的问答记录，作为后续提问的只读历史
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	Exchanges []Exchange

	mu sync.RWMutex
}

// New 创建新 Session（ID 由调用方分配时可传空）
func New(id string) *Session {
	now := time.Now()
	if id == "" {
		id = "session-" + uuid.New().String()
	}
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddExchange 追加一组问答
func (s *Session) AddExchange(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	s.Exchanges = append(s.Exchanges, Exchange{Question: question, Answer: answer, At: s.UpdatedAt})
}

// CopyExchanges 返回问答记录的副本（供存储与展示只读使用）
func (s *Session) CopyExchanges() []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Exchanges) == 0 {
		return nil
	}
	out := make([]Exchange, len(s.Exchanges))
	copy(out, s.Exchanges)
	return out
}

// History 将最近 max 组问答转为模型消息（user/assistant 成对，时间序）。
// max <= 0 返回全部。
func (s *Session) History(max int) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exchanges := s.Exchanges
	if max > 0 && len(exchanges) > max {
		exchanges = exchanges[len(exchanges)-max:]
	}
	if len(exchanges) == 0 {
		return nil
	}
	out := make([]llm.Message, 0, len(exchanges)*2)
	for _, e := range exchanges {
		out = append(out, llm.UserMessage(e.Question))
		out = append(out, llm.AssistantMessage(e.Answer, nil))
	}
	return out
}
