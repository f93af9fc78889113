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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore Postgres 实现：sessions 表
// (id text pk, exchanges jsonb, created_at bigint, updated_at bigint)
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore 创建基于 PostgreSQL 的会话存储
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

// Get 实现 Store，未找到返回 (nil, nil)
func (s *PgStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, COALESCE(exchanges,'[]'::jsonb), created_at, updated_at
		 FROM sessions WHERE id = $1`, id)

	var sess Session
	var exchanges []byte
	var createdAt, updatedAt int64
	if err := row.Scan(&sess.ID, &exchanges, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(exchanges) > 0 {
		if err := json.Unmarshal(exchanges, &sess.Exchanges); err != nil {
			return nil, fmt.Errorf("解析会话历史failed: %w", err)
		}
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	return &sess, nil
}

// Put 实现 Store；同一 ID 覆盖历史，保留创建时间
func (s *PgStore) Put(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	exchanges, err := json.Marshal(sess.CopyExchanges())
	if err != nil {
		return fmt.Errorf("序列化会话历史failed: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, exchanges, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   exchanges = EXCLUDED.exchanges,
		   updated_at = EXCLUDED.updated_at`,
		sess.ID, exchanges, sess.CreatedAt.Unix(), sess.UpdatedAt.Unix())
	return err
}

// Delete 实现 Store；删除不存在的会话视为成功
func (s *PgStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// Close 关闭连接池
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}
