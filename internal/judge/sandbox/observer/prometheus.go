package observer

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "codejudge"

var (
	// 1ms -> 10s
	runTimeBuckets = []float64{
		0.001, 0.002, 0.005, 0.010, 0.025, 0.050, 0.1, 0.2,
		0.4, 0.6, 0.8, 1.0, 1.5, 2, 5, 10,
	}
	// 256k -> 4g, in bytes
	memoryBuckets = prometheus.ExponentialBuckets(1<<18, 2, 15)
	// 10ms -> ~40s for a whole submission
	judgeBuckets = prometheus.ExponentialBuckets(0.01, 2, 13)
)

// PrometheusRecorder implements MetricsRecorder with Prometheus collectors.
type PrometheusRecorder struct {
	compileTotal *prometheus.CounterVec
	compileTime  *prometheus.HistogramVec
	runTime      *prometheus.HistogramVec
	runMemory    *prometheus.HistogramVec
	judgeTime    *prometheus.HistogramVec
	verdictTotal *prometheus.CounterVec
	queueDepth   prometheus.Gauge
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		compileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "compile",
			Name:      "total",
			Help:      "Number of compilations by language and outcome",
		}, []string{"language", "ok"}),
		compileTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "compile",
			Name:      "time_seconds",
			Help:      "Histogram for the compile time",
			Buckets:   judgeBuckets,
		}, []string{"language"}),
		runTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "run",
			Name:      "time_seconds",
			Help:      "Histogram for the running time of one test case",
			Buckets:   runTimeBuckets,
		}, []string{"language", "status"}),
		runMemory: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "run",
			Name:      "memory_bytes",
			Help:      "Histogram for the peak memory of one test case",
			Buckets:   memoryBuckets,
		}, []string{"language", "status"}),
		judgeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "judge",
			Name:      "duration_seconds",
			Help:      "Histogram for the time to judge one submission",
			Buckets:   judgeBuckets,
		}, []string{"language"}),
		verdictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "judge",
			Name:      "verdict_total",
			Help:      "Number of final verdicts",
		}, []string{"language", "status"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "judge",
			Name:      "queue_depth",
			Help:      "Number of submissions waiting for a worker",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.compileTotal, r.compileTime, r.runTime, r.runMemory, r.judgeTime, r.verdictTotal, r.queueDepth)
	}
	return r
}

func (r *PrometheusRecorder) ObserveCompile(ctx context.Context, languageID string, ok bool, timeMs int64) {
	r.compileTotal.WithLabelValues(languageID, strconv.FormatBool(ok)).Inc()
	r.compileTime.WithLabelValues(languageID).Observe(msToSeconds(timeMs))
}

func (r *PrometheusRecorder) ObserveRun(ctx context.Context, languageID string, status string, timeMs int64, memoryKB int64) {
	r.runTime.WithLabelValues(languageID, status).Observe(msToSeconds(timeMs))
	if memoryKB > 0 {
		r.runMemory.WithLabelValues(languageID, status).Observe(float64(memoryKB * 1024))
	}
}

func (r *PrometheusRecorder) ObserveJudge(ctx context.Context, languageID string, status string, elapsed time.Duration) {
	r.judgeTime.WithLabelValues(languageID).Observe(elapsed.Seconds())
	r.verdictTotal.WithLabelValues(languageID, status).Inc()
}

func (r *PrometheusRecorder) SetQueueDepth(depth int) {
	r.queueDepth.Set(float64(depth))
}

func msToSeconds(ms int64) float64 {
	return (time.Duration(ms) * time.Millisecond).Seconds()
}
