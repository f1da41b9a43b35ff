// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とワーカーから利用する。
type MetricsCollector interface {
	RecordCounterAdjustment(field string, delta int)
	RecordFanOutFailure()
	RecordViewRecorded()
	RecordShareRecorded()
	RecordRatingRecorded()
	RecordIdentityEvent(eventType string)
	RecordLifecycleFailure(operation string)
	RecordHTTPStatus(statusCode int)
	RecordReconcileRun(repaired int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	counterAdjust     *prometheus.CounterVec
	fanOutFail        prometheus.Counter
	viewsRecorded     prometheus.Counter
	sharesRecorded    prometheus.Counter
	ratingsRecorded   prometheus.Counter
	identityEvents    *prometheus.CounterVec
	lifecycleFailures *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	reconcileRuns     prometheus.Counter
	reconcileRepaired prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		counterAdjust: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pocketnewz_counter_adjustments_total",
			Help: "非正規化カウンターの増減の合計数",
		}, []string{"field", "direction"}),
		fanOutFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pocketnewz_fanout_failures_total",
			Help: "ステーションカウンターのファンアウトで部分失敗が発生した回数",
		}),
		viewsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pocketnewz_views_recorded_total",
			Help: "記録された視聴の合計数",
		}),
		sharesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pocketnewz_shares_recorded_total",
			Help: "記録された共有の合計数",
		}),
		ratingsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pocketnewz_ratings_recorded_total",
			Help: "記録された評価の合計数",
		}),
		identityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pocketnewz_identity_events_total",
			Help: "処理されたアイデンティティイベントの種別ごとの合計数",
		}, []string{"type"}),
		lifecycleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pocketnewz_lifecycle_failures_total",
			Help: "ライフサイクル処理の失敗の操作ごとの合計数",
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pocketnewz_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		reconcileRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pocketnewz_reconcile_runs_total",
			Help: "カウンター再集計の実行回数",
		}),
		reconcileRepaired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pocketnewz_reconcile_repaired_total",
			Help: "再集計で修復されたカウンターの合計数",
		}),
	}

	reg.MustRegister(
		c.counterAdjust,
		c.fanOutFail,
		c.viewsRecorded,
		c.sharesRecorded,
		c.ratingsRecorded,
		c.identityEvents,
		c.lifecycleFailures,
		c.httpStatus,
		c.reconcileRuns,
		c.reconcileRepaired,
	)

	return c
}

// RecordCounterAdjustment はカウンターの増減を記録する。
func (c *Collector) RecordCounterAdjustment(field string, delta int) {
	direction := "increment"
	if delta < 0 {
		direction = "decrement"
	}
	c.counterAdjust.WithLabelValues(field, direction).Inc()
}

// RecordFanOutFailure はファンアウトの部分失敗を記録する。
func (c *Collector) RecordFanOutFailure() {
	c.fanOutFail.Inc()
}

// RecordViewRecorded は視聴の記録を記録する。
func (c *Collector) RecordViewRecorded() {
	c.viewsRecorded.Inc()
}

// RecordShareRecorded は共有の記録を記録する。
func (c *Collector) RecordShareRecorded() {
	c.sharesRecorded.Inc()
}

// RecordRatingRecorded は評価の記録を記録する。
func (c *Collector) RecordRatingRecorded() {
	c.ratingsRecorded.Inc()
}

// RecordIdentityEvent はアイデンティティイベントの処理を記録する。
func (c *Collector) RecordIdentityEvent(eventType string) {
	c.identityEvents.WithLabelValues(eventType).Inc()
}

// RecordLifecycleFailure はライフサイクル処理の失敗を記録する。
func (c *Collector) RecordLifecycleFailure(operation string) {
	c.lifecycleFailures.WithLabelValues(operation).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordReconcileRun は再集計の実行と修復数を記録する。
func (c *Collector) RecordReconcileRun(repaired int) {
	c.reconcileRuns.Inc()
	c.reconcileRepaired.Add(float64(repaired))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
