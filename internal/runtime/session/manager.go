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
	"context"

	"course-rag/internal/model/llm"
)

// defaultMaxHistory 默认注入模型的历史问答对数
const defaultMaxHistory = 2

// Manager 管理会话生命周期与历史窗口
type Manager struct {
	store      Store
	maxHistory int
}

// NewManager 创建 Manager；maxHistory <= 0 使用默认值
func NewManager(store Store, maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Manager{store: store, maxHistory: maxHistory}
}

// Create 创建并持久化新会话
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s := New("")
	if err := m.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get 按 ID 获取会话，未找到返回 (nil, nil)
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// GetOrCreate 若 id 为空则 Create，否则 Get；若未找到则创建新会话并使用该 id
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return m.Create(ctx)
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}
	s = New(id)
	if err := m.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// History 返回会话最近 maxHistory 组问答对应的模型消息；会话不存在返回 nil
func (m *Manager) History(ctx context.Context, id string) ([]llm.Message, error) {
	if id == "" {
		return nil, nil
	}
	s, err := m.store.Get(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	return s.History(m.maxHistory), nil
}

// AddExchange 向会话追加一组问答并持久化；会话不存在时按该 id 创建
func (m *Manager) AddExchange(ctx context.Context, id, question, answer string) error {
	s, err := m.GetOrCreate(ctx, id)
	if err != nil {
		return err
	}
	s.AddExchange(question, answer)
	return m.store.Put(ctx, s)
}

// Clear 删除会话及其全部历史
func (m *Manager) Clear(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Save 持久化会话
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	return m.store.Put(ctx, s)
}
