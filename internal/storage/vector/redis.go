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

package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"course-rag/pkg/config"
)

const (
	vectorField   = "vector"
	distanceField = "distance"
)

// RedisStore 基于 Redis Stack（RediSearch KNN）的向量存储。
// 向量与元数据以 HASH 存储，键形如 "{index}:{id}"，过滤字段进 FT schema。
type RedisStore struct {
	client *redis.Client

	// 索引的字段类型与距离度量，FT.CREATE 时记录；
	// 进程外已建索引按默认约定处理
	mu    sync.RWMutex
	metas map[string]*redisIndexMeta
}

type redisIndexMeta struct {
	numeric  map[string]bool
	distance string
}

// RedisOptions 从 VectorConfig 构造 redis.Options；
// RedisStore 与 eino-ext 目录索引/检索组件共用同一连接配置
func RedisOptions(cfg config.VectorConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if cfg.DB != "" {
		if db, err := strconv.Atoi(cfg.DB); err == nil && db >= 0 {
			opts.DB = db
		}
	}
	// Redis Stack 向量检索需 Protocol 2、UnstableResp3 true（见 eino-ext retriever 注释）
	opts.Protocol = 2
	opts.UnstableResp3 = true
	return opts
}

// NewRedisStore 连接 Redis 并创建向量存储
func NewRedisStore(ctx context.Context, cfg config.VectorConfig) (*RedisStore, error) {
	client := redis.NewClient(RedisOptions(cfg))
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{
		client: client,
		metas:  make(map[string]*redisIndexMeta),
	}, nil
}

// Create 创建向量索引（FT.CREATE ON HASH，向量字段 FLAT FLOAT32）
func (s *RedisStore) Create(ctx context.Context, idx *Index) error {
	numeric := make(map[string]bool)
	schema := make([]*redis.FieldSchema, 0, len(idx.Fields)+1)
	for field, kind := range idx.Fields {
		switch kind {
		case "tag":
			schema = append(schema, &redis.FieldSchema{FieldName: field, FieldType: redis.SearchFieldTypeTag})
		case "numeric":
			schema = append(schema, &redis.FieldSchema{FieldName: field, FieldType: redis.SearchFieldTypeNumeric})
			numeric[field] = true
		default:
			schema = append(schema, &redis.FieldSchema{FieldName: field, FieldType: redis.SearchFieldTypeText})
		}
	}
	schema = append(schema, &redis.FieldSchema{
		FieldName: vectorField,
		FieldType: redis.SearchFieldTypeVector,
		VectorArgs: &redis.FTVectorArgs{
			FlatOptions: &redis.FTFlatOptions{
				Type:           "FLOAT32",
				Dim:            idx.Dimension,
				DistanceMetric: distanceMetric(idx.Distance),
			},
		},
	})

	err := s.client.FTCreate(ctx, idx.Name, &redis.FTCreateOptions{
		OnHash: true,
		Prefix: []interface{}{idx.Name + ":"},
	}, schema...).Err()
	if err != nil {
		if strings.Contains(err.Error(), "Index already exists") {
			return fmt.Errorf("index with name %s already exists", idx.Name)
		}
		return fmt.Errorf("FT.CREATE %s: %w", idx.Name, err)
	}

	s.mu.Lock()
	s.metas[idx.Name] = &redisIndexMeta{numeric: numeric, distance: distanceMetric(idx.Distance)}
	s.mu.Unlock()
	return nil
}

// Add 添加向量（HSET，向量编码为 FLOAT32 little-endian 二进制）
func (s *RedisStore) Add(ctx context.Context, indexName string, vectors []*Vector) error {
	pipe := s.client.Pipeline()
	for _, v := range vectors {
		fields := make(map[string]interface{}, len(v.Metadata)+1)
		for k, val := range v.Metadata {
			fields[k] = val
		}
		fields[vectorField] = encodeVector(v.Values)
		pipe.HSet(ctx, s.key(indexName, v.ID), fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入向量failed: %w", err)
	}
	return nil
}

// Search KNN 检索，可叠加元数据过滤（TAG 精确匹配 / NUMERIC 单值区间）
func (s *RedisStore) Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error) {
	if options == nil {
		options = &SearchOptions{TopK: 10}
	}
	topK := options.TopK
	if topK <= 0 {
		topK = 10
	}

	meta := s.indexMeta(indexName)
	q := fmt.Sprintf("%s=>[KNN %d @%s $vec AS %s]",
		filterQuery(options.Filter, meta.numeric), topK, vectorField, distanceField)

	res, err := s.client.FTSearchWithArgs(ctx, indexName, q, &redis.FTSearchOptions{
		Params:         map[string]interface{}{"vec": encodeVector(query)},
		SortBy:         []redis.FTSearchSortBy{{FieldName: distanceField, Asc: true}},
		LimitOffset:    0,
		Limit:          topK,
		DialectVersion: 2,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("FT.SEARCH %s: %w", indexName, err)
	}

	results := make([]*SearchResult, 0, len(res.Docs))
	for _, doc := range res.Docs {
		metadata := make(map[string]string, len(doc.Fields))
		score := 0.0
		for k, v := range doc.Fields {
			switch k {
			case vectorField:
				// 原始向量二进制不进 metadata
			case distanceField:
				if d, perr := strconv.ParseFloat(v, 64); perr == nil {
					score = toScore(meta.distance, d)
				}
			default:
				metadata[k] = v
			}
		}
		if score < options.Threshold {
			continue
		}
		r := &SearchResult{
			ID:       strings.TrimPrefix(doc.ID, indexName+":"),
			Score:    score,
			Metadata: metadata,
		}
		if options.IncludeVectors {
			if raw, ok := doc.Fields[vectorField]; ok {
				r.Values = decodeVector([]byte(raw))
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// Get 根据 ID 获取向量
func (s *RedisStore) Get(ctx context.Context, indexName string, id string) (*Vector, error) {
	fields, err := s.client.HGetAll(ctx, s.key(indexName, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取向量failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("vector with ID %s not found", id)
	}

	v := &Vector{ID: id, Metadata: make(map[string]string, len(fields))}
	for k, val := range fields {
		if k == vectorField {
			v.Values = decodeVector([]byte(val))
			continue
		}
		v.Metadata[k] = val
	}
	return v, nil
}

// Delete 删除向量
func (s *RedisStore) Delete(ctx context.Context, indexName string, id string) error {
	n, err := s.client.Del(ctx, s.key(indexName, id)).Result()
	if err != nil {
		return fmt.Errorf("删除向量failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("vector with ID %s not found", id)
	}
	return nil
}

// DeleteIndex 删除索引与其全部文档
func (s *RedisStore) DeleteIndex(ctx context.Context, indexName string) error {
	err := s.client.FTDropIndexWithArgs(ctx, indexName, &redis.FTDropIndexOptions{DeleteDocs: true}).Err()
	if err != nil {
		return fmt.Errorf("FT.DROPINDEX %s: %w", indexName, err)
	}
	s.mu.Lock()
	delete(s.metas, indexName)
	s.mu.Unlock()
	return nil
}

// ListIndexes 列出所有索引（FT._LIST）
func (s *RedisStore) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := s.client.FT_List(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("FT._LIST: %w", err)
	}
	return names, nil
}

// Close 关闭存储连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(indexName, id string) string {
	return indexName + ":" + id
}

// indexMeta 返回索引的字段约定；未知索引（进程重启后）按默认数值字段处理
func (s *RedisStore) indexMeta(indexName string) *redisIndexMeta {
	s.mu.RLock()
	meta, ok := s.metas[indexName]
	s.mu.RUnlock()
	if ok {
		return meta
	}
	return &redisIndexMeta{
		numeric:  map[string]bool{MetaLessonNumber: true, MetaChunkIndex: true},
		distance: "COSINE",
	}
}

// filterQuery 构造 FT.SEARCH 过滤前缀；无过滤时为 "*"。
// 键排序保证查询串稳定。
func filterQuery(filter map[string]string, numeric map[string]bool) string {
	if len(filter) == 0 {
		return "*"
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := filter[k]
		if numeric[k] {
			parts = append(parts, fmt.Sprintf("@%s:[%s %s]", k, v, v))
		} else {
			parts = append(parts, fmt.Sprintf("@%s:{%s}", k, escapeTag(v)))
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// escapeTag 转义 TAG 查询值中的标点与空白
func escapeTag(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r <= 0x7f && !isWordChar(byte(r)) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

// distanceMetric 将距离度量映射为 RediSearch 形式
func distanceMetric(distance string) string {
	switch distance {
	case "euclidean", "l2":
		return "L2"
	default:
		return "COSINE"
	}
}

// toScore 将 KNN 距离换算为相似度
func toScore(metric string, d float64) float64 {
	if metric == "L2" {
		return 1.0 / (1.0 + d)
	}
	return 1.0 - d
}

// encodeVector float64 切片编码为 FLOAT32 little-endian 二进制
func encodeVector(values []float64) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}

// decodeVector FLOAT32 little-endian 二进制还原为 float64 切片
func decodeVector(raw []byte) []float64 {
	out := make([]float64, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		out = append(out, float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i:]))))
	}
	return out
}
