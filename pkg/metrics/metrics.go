package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API/Ingest 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		QueryDuration, QueryTotal, QueryRounds,
		ModelCallTotal, LLMTokensTotal,
		ToolDuration, ToolTotal,
		RateLimitWaitSeconds,
		IngestDocumentsTotal, IngestChunksTotal,
	)
}

// QueryDuration 单次提问处理耗时（秒），按终止原因
var QueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "courserag_query_duration_seconds",
		Help:    "单次提问处理耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"termination"},
)

// QueryTotal 提问总数（按终止原因）
var QueryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "courserag_query_total",
		Help: "提问总数（按终止原因）",
	},
	[]string{"termination"}, // no_tool_use | max_rounds | tool_error | failed
)

// QueryRounds 单次提问实际执行的工具轮数
var QueryRounds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "courserag_query_rounds",
		Help:    "单次提问实际执行的工具轮数",
		Buckets: []float64{0, 1, 2},
	},
)

// ModelCallTotal 模型调用总数（按 provider 与结果）
var ModelCallTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "courserag_model_call_total",
		Help: "模型调用总数",
	},
	[]string{"provider", "status"}, // ok | error
)

// LLMTokensTotal LLM 调用 token 数
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "courserag_llm_tokens_total",
		Help: "LLM 调用 token 总数",
	},
	[]string{"direction"}, // prompt | completion
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "courserag_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolTotal 工具调用总数（按工具与结果）
var ToolTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "courserag_tool_total",
		Help: "工具调用总数",
	},
	[]string{"tool", "status"}, // ok | error | fault
)

// RateLimitWaitSeconds 限流等待耗时（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "courserag_rate_limit_wait_seconds",
		Help:    "限流等待耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind", "provider"},
)

// IngestDocumentsTotal 入库课程文档总数（按结果）
var IngestDocumentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "courserag_ingest_documents_total",
		Help: "入库课程文档总数",
	},
	[]string{"status"}, // ok | skipped | failed
)

// IngestChunksTotal 已写入向量库的内容切片总数
var IngestChunksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "courserag_ingest_chunks_total",
		Help: "已写入向量库的内容切片总数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
