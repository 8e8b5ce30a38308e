package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	syncDuration  *prom.HistogramVec
	syncResults   *prom.CounterVec
	cycleDuration prom.Histogram
	cycleOutcomes *prom.CounterVec
	notifications *prom.CounterVec
	retryWindow   prom.Gauge
	wakeFallbacks *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.syncDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: config.MetricsNamespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of three-day cache syncs",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.syncResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "sync_results_total",
			Help:      "Cache sync results by success/failure",
		}, []string{"result"})
		pr.cycleDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: config.MetricsNamespace,
			Name:      "refresh_cycle_duration_seconds",
			Help:      "Duration of refresh cycles",
			Buckets:   prom.DefBuckets,
		})
		pr.cycleOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "refresh_outcomes_total",
			Help:      "Refresh cycles by outcome",
		}, []string{"outcome"})
		pr.notifications = prom.NewCounterVec(prom.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "notifications_total",
			Help:      "Prayer notifications emitted",
		}, []string{"prayer"})
		pr.retryWindow = prom.NewGauge(prom.GaugeOpts{
			Namespace: config.MetricsNamespace,
			Name:      "retry_window_open",
			Help:      "1 while the provider retry window is open",
		})
		pr.wakeFallbacks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: config.MetricsNamespace,
			Name:      "wake_fallbacks_total",
			Help:      "Exact wake-ups that degraded to a best-effort timer",
		}, []string{"channel"})
		reg.MustRegister(pr.syncDuration, pr.syncResults, pr.cycleDuration, pr.cycleOutcomes,
			pr.notifications, pr.retryWindow, pr.wakeFallbacks)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveSync(ok bool, d time.Duration) {
	if p == nil || p.syncDuration == nil {
		return
	}
	res := resultLabel(ok)
	p.syncDuration.WithLabelValues(res).Observe(durationSeconds(d))
	p.syncResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) ObserveCycle(outcome engine.Outcome, d time.Duration) {
	if p == nil || p.cycleDuration == nil {
		return
	}
	p.cycleDuration.Observe(durationSeconds(d))
	p.cycleOutcomes.WithLabelValues(outcome.String()).Inc()
}

func (p *PrometheusRecorder) IncNotification(pr engine.Prayer) {
	if p == nil || p.notifications == nil {
		return
	}
	p.notifications.WithLabelValues(pr.String()).Inc()
}

func (p *PrometheusRecorder) SetRetryWindowOpen(open bool) {
	if p == nil || p.retryWindow == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	p.retryWindow.Set(v)
}

func (p *PrometheusRecorder) IncWakeFallback(channel string) {
	if p == nil || p.wakeFallbacks == nil {
		return
	}
	p.wakeFallbacks.WithLabelValues(channel).Inc()
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
