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

package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgerrors "course-rag/pkg/errors"
)

// PgStore Postgres 实现：courses 表
// (id text pk, title text unique, link text, instructor text,
//  lessons jsonb, chunk_count int, created_at bigint, updated_at bigint)
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore 创建基于 PostgreSQL 的课程目录存储
func NewPgStore(ctx context.Context, dsn string, poolSize int) (*PgStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if poolSize > 0 {
		config.MaxConns = int32(poolSize)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PgStore{pool: pool}, nil
}

// Upsert 按标题写入或更新课程；冲突时保留原 ID 与创建时间
func (s *PgStore) Upsert(ctx context.Context, course *Course) error {
	if course.Title == "" {
		return fmt.Errorf("course title is required")
	}
	if course.ID == "" {
		course.ID = "course-" + uuid.New().String()
	}
	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("序列化课次列表failed: %w", err)
	}

	now := time.Now().Unix()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO courses (id, title, link, instructor, lessons, chunk_count, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $7)
		 ON CONFLICT (title) DO UPDATE SET
		   link = EXCLUDED.link,
		   instructor = EXCLUDED.instructor,
		   lessons = EXCLUDED.lessons,
		   chunk_count = EXCLUDED.chunk_count,
		   updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		course.ID, course.Title, course.Link, course.Instructor, lessons, course.ChunkCount, now)
	if err := row.Scan(&course.ID, &course.CreatedAt); err != nil {
		return err
	}
	course.UpdatedAt = now
	return nil
}

// Get 根据 ID 获取课程
func (s *PgStore) Get(ctx context.Context, id string) (*Course, error) {
	return s.getCourse(ctx, `WHERE id = $1`, id)
}

// GetByTitle 按标题精确获取课程
func (s *PgStore) GetByTitle(ctx context.Context, title string) (*Course, error) {
	return s.getCourse(ctx, `WHERE title = $1`, title)
}

func (s *PgStore) getCourse(ctx context.Context, where string, arg any) (*Course, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, COALESCE(link,''), COALESCE(instructor,''), COALESCE(lessons,'[]'::jsonb), chunk_count, created_at, updated_at
		 FROM courses `+where, arg)

	course, err := scanCourse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: course %v", pkgerrors.ErrNotFound, arg)
	}
	return course, err
}

// List 按标题序列出课程
func (s *PgStore) List(ctx context.Context, pagination *Pagination) ([]*Course, error) {
	query := `SELECT id, title, COALESCE(link,''), COALESCE(instructor,''), COALESCE(lessons,'[]'::jsonb), chunk_count, created_at, updated_at
		 FROM courses ORDER BY title`
	args := []any{}
	if pagination != nil && pagination.Limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, pagination.Limit, pagination.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, course)
	}
	return out, rows.Err()
}

// Titles 列出全部课程标题
func (s *PgStore) Titles(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// Count 统计课程数量
func (s *PgStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count)
	return count, err
}

// Delete 根据 ID 删除课程
func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: course with ID %s", pkgerrors.ErrNotFound, id)
	}
	return nil
}

// Close 关闭连接池
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	var lessons []byte
	if err := row.Scan(&c.ID, &c.Title, &c.Link, &c.Instructor, &lessons, &c.ChunkCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if len(lessons) > 0 {
		if err := json.Unmarshal(lessons, &c.Lessons); err != nil {
			return nil, fmt.Errorf("解析课次列表failed: %w", err)
		}
	}
	return &c, nil
}
