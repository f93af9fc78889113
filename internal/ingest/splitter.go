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
	"regexp"
	"strings"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 100
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	sentenceEndRe = regexp.MustCompile(`[.!?]["')\]]*(\s+|$)`)
)

// Splitter 句子感知切片器：按句子边界组块，相邻块带字符重叠。
// 超过 chunkSize 的单句独立成块，不在句中截断。
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter 创建切片器；chunkSize/overlap <= 0 时使用默认 800/100
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap <= 0 {
		overlap = defaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split 将正文切为若干块，空白归一化为单个空格
func (s *Splitter) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		size := 0
		j := i
		for j < len(sentences) {
			add := len(sentences[j])
			if size > 0 {
				add++ // 句间空格
			}
			if size+add > s.chunkSize && j > i {
				break
			}
			size += add
			j++
		}
		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}

		// 下一块从覆盖约 overlap 个字符的尾句开始
		next := j
		covered := 0
		for next > i+1 && covered+len(sentences[next-1]) <= s.overlap {
			covered += len(sentences[next-1]) + 1
			next--
		}
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return chunks
}

// splitSentences 按句末标点切句；无标点的文本整体视为一句
func splitSentences(text string) []string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}
