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
	"reflect"
	"strings"
	"testing"
)

func TestSplitter_Split_SingleChunk(t *testing.T) {
	s := NewSplitter(0, 0)
	chunks := s.Split("One sentence.\nAnd   another\nacross lines.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "One sentence. And another across lines." {
		t.Errorf("whitespace should be normalized: %q", chunks[0])
	}
}

func TestSplitter_Split_OverlapOnSentenceBoundary(t *testing.T) {
	s := NewSplitter(30, 12)
	text := "Alpha one. Bravo two. Charlie three. Delta four."
	want := []string{
		"Alpha one. Bravo two.",
		"Bravo two. Charlie three.",
		"Delta four.",
	}
	got := s.Split(text)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split:\n got %q\nwant %q", got, want)
	}
	for _, chunk := range got {
		if len(chunk) > 30 {
			t.Errorf("chunk over size limit: %q", chunk)
		}
	}
}

func TestSplitter_Split_LongSentenceKeptWhole(t *testing.T) {
	s := NewSplitter(40, 10)
	long := "This single sentence runs well past the configured chunk size without any break."
	chunks := s.Split(long + " Short tail.")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != long {
		t.Errorf("long sentence should stay whole: %q", chunks[0])
	}
	if !strings.Contains(chunks[1], "Short tail.") {
		t.Errorf("tail chunk: %q", chunks[1])
	}
}

func TestSplitter_Split_Empty(t *testing.T) {
	if got := NewSplitter(0, 0).Split("   \n\t "); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
