// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はリマインダースイープのPrometheusメトリクスを収集する。
// reminder.Recorder を満たす。
type Collector struct {
	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	dueItems      prometheus.Counter
	sent          prometheus.Counter
	sendFailures  *prometheus.CounterVec
	markFailures  prometheus.Counter
	unparseable   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "displaydate_reminder_sweeps_total",
			Help: "結果区分別のリマインダースイープ実行数",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "displaydate_reminder_sweep_duration_seconds",
			Help:    "リマインダースイープの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		dueItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "displaydate_reminder_due_items_total",
			Help: "通知対象と判定された記録の合計数",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "displaydate_reminder_sent_total",
			Help: "送信に成功した通知の合計数",
		}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "displaydate_reminder_send_failures_total",
			Help: "失敗区分別の通知送信失敗数",
		}, []string{"class"}),
		markFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "displaydate_reminder_mark_failures_total",
			Help: "送信済みの記録に失敗した合計数",
		}),
		unparseable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "displaydate_reminder_unparseable_expiry_total",
			Help: "期限を解釈できずに除外された記録の合計数",
		}),
	}

	reg.MustRegister(
		c.sweeps,
		c.sweepDuration,
		c.dueItems,
		c.sent,
		c.sendFailures,
		c.markFailures,
		c.unparseable,
	)

	return c
}

// RecordSweep はスイープ1回の結果と所要時間を記録する。
func (c *Collector) RecordSweep(outcome string, duration time.Duration) {
	c.sweeps.WithLabelValues(outcome).Inc()
	c.sweepDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordDue(count int) {
	c.dueItems.Add(float64(count))
}

func (c *Collector) RecordSent() {
	c.sent.Inc()
}

// RecordSendFailure は送信失敗を区分（config/transport/gateway/unknown）別に記録する。
func (c *Collector) RecordSendFailure(class string) {
	c.sendFailures.WithLabelValues(class).Inc()
}

func (c *Collector) RecordMarkFailure() {
	c.markFailures.Inc()
}

func (c *Collector) RecordUnparseable(count int) {
	c.unparseable.Add(float64(count))
}

// SetupMetricsRoute はワーカーが公開するスクレイプ用ハンドラーを返す。/metrics以外は404。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
	return mux
}
