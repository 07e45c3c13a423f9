package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API/CLI 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		InferenceDuration, InferenceTotal,
		InferenceInFlight, TransportCreated,
	)
}

// InferenceDuration 单次推理耗时（秒），含排队与远程调用
var InferenceDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "vision_inference_duration_seconds",
		Help:    "单次推理耗时（秒）",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	},
	[]string{"backend"},
)

// InferenceTotal 推理总数（按结果）
var InferenceTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vision_inference_total",
		Help: "推理总数（按结果）",
	},
	[]string{"backend", "outcome"}, // ok | UnknownBackend | InvalidRequest | TransportError | ...
)

// InferenceInFlight 正在执行的推理数
var InferenceInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "vision_inference_in_flight",
		Help: "正在执行的推理数",
	},
)

// TransportCreated 传输句柄创建次数（每后端通常为 1）
var TransportCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vision_transport_created_total",
		Help: "传输句柄创建次数",
	},
	[]string{"backend"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
