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
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "course-rag/pkg/errors"
)

// Document 一份已加载的课程文档（正文已解码为纯文本）
type Document struct {
	Name    string // 文件名（不含目录）
	Path    string // 来源路径；上传文件为空
	Content string
}

// Loader 课程文档加载器：txt/md 直接读取，pdf 提取正文
type Loader struct {
	maxSize int64
}

// NewLoader 创建文档加载器
func NewLoader() *Loader {
	return &Loader{maxSize: 50 * 1024 * 1024} // 50MB
}

// SupportedFile 判断文件名是否为支持的文档类型
func SupportedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown", ".pdf":
		return true
	}
	return false
}

// LoadDir 递归加载目录下全部支持的文档，按路径字典序返回
func (l *Loader) LoadDir(dir string) ([]*Document, error) {
	var docs []*Document
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !SupportedFile(entry.Name()) {
			return nil
		}
		doc, err := l.LoadPath(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("读取课程文档目录failed: %w", err)
	}
	return docs, nil
}

// LoadPath 加载单个文件
func (l *Loader) LoadPath(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("获取文件信息failed: %w", err)
	}
	if info.Size() > l.maxSize {
		return nil, fmt.Errorf("文件大小超过限制: %d > %d", info.Size(), l.maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件failed: %w", err)
	}
	content, err := l.decode(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	return &Document{Name: filepath.Base(path), Path: path, Content: content}, nil
}

// LoadFileHeader 加载一个上传文件（multipart）
func (l *Loader) LoadFileHeader(header *multipart.FileHeader) (*Document, error) {
	if header.Size > l.maxSize {
		return nil, fmt.Errorf("%w: 文件大小超过限制: %d > %d", pkgerrors.ErrInvalidArg, header.Size, l.maxSize)
	}
	if !SupportedFile(header.Filename) {
		return nil, fmt.Errorf("%w: 不支持的文档类型: %s", pkgerrors.ErrInvalidArg, header.Filename)
	}
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("打开上传文件failed: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件failed: %w", err)
	}
	content, err := l.decode(header.Filename, data)
	if err != nil {
		return nil, err
	}
	return &Document{Name: header.Filename, Content: content}, nil
}

// decode 按扩展名解码正文；PDF 逐页提取文本
func (l *Loader) decode(name string, data []byte) (string, error) {
	if strings.ToLower(filepath.Ext(name)) == ".pdf" {
		text, err := extractPDFText(data)
		if err != nil {
			return "", fmt.Errorf("PDF 文本提取failed: %w", err)
		}
		return text, nil
	}
	return string(data), nil
}
