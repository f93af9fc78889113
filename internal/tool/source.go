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

package tool

import (
	"sync"
)

// Source 检索来源（展示给调用方，Link 可为空）
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// SourceRecorder 收集一次提问期间工具产生的来源。
// 每次提问开始时 Reset 一次，之后各工具 Add 追加；同一 (Text, Link) 只记一次。
type SourceRecorder struct {
	mu      sync.Mutex
	sources []Source
	seen    map[Source]struct{}
}

// NewSourceRecorder 创建来源收集器
func NewSourceRecorder() *SourceRecorder {
	return &SourceRecorder{seen: make(map[Source]struct{})}
}

// Reset 清空已收集的来源
func (r *SourceRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = nil
	r.seen = make(map[Source]struct{})
}

// Add 追加来源，重复项忽略
func (r *SourceRecorder) Add(sources ...Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sources {
		if s.Text == "" {
			continue
		}
		if _, ok := r.seen[s]; ok {
			continue
		}
		r.seen[s] = struct{}{}
		r.sources = append(r.sources, s)
	}
}

// Snapshot 返回当前来源列表的副本
func (r *SourceRecorder) Snapshot() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sources) == 0 {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}
