package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qfround",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Count of ledger RPC operations.",
	}, []string{"operation", "chain", "status"})
	ledgerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qfround",
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ledger RPC operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "chain", "status"})
)

// Ledger 链上RPC调用指标
type Ledger struct {
	chain string
}

// NewLedger 创建链上调用指标收集器
func NewLedger(chain string) *Ledger {
	if chain == "" {
		chain = "unknown"
	}
	return &Ledger{chain: chain}
}

// Observe 记录一次链上调用的结果与耗时
func (m *Ledger) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ledgerRequestsTotal.WithLabelValues(operation, m.chain, status).Inc()
	ledgerRequestDuration.WithLabelValues(operation, m.chain, status).Observe(time.Since(started).Seconds())
}
