package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 事件被跳过的原因
const (
	SkipDuplicate      = "duplicate"
	SkipIneligible     = "ineligible_status"
	SkipRemovedSource  = "removed_source"
	SkipMetadataDecode = "metadata_decode"
)

var (
	reconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qfround",
		Subsystem: "reconcile",
		Name:      "duration_seconds",
		Help:      "Duration of reconciliation runs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine", "status"})
	reconcileSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qfround",
		Subsystem: "reconcile",
		Name:      "skipped_events_total",
		Help:      "Count of scanned events classified as skipped.",
	}, []string{"engine", "reason"})
)

// Reconcile 单个对账引擎的指标
type Reconcile struct {
	engine string
}

// NewReconcile 按引擎名称创建指标收集器
func NewReconcile(engine string) *Reconcile {
	return &Reconcile{engine: engine}
}

// Observe 记录一次对账的结果与耗时
func (m *Reconcile) Observe(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	reconcileDuration.WithLabelValues(m.engine, status).Observe(time.Since(started).Seconds())
}

// Skip 记录一条被跳过的事件
func (m *Reconcile) Skip(reason string) {
	reconcileSkippedTotal.WithLabelValues(m.engine, reason).Inc()
}
