package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

const namespace = "famspace"

// Metrics owns a private Prometheus registry. All methods are safe on a nil receiver,
// which is what Current returns while metrics are disabled.
type Metrics struct {
	reg *prometheus.Registry
	cfg MetricsConfig

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	growthWrites    *prometheus.CounterVec
	growthLatency   *prometheus.HistogramVec
	growthConflicts *prometheus.CounterVec
	growthRetries   *prometheus.CounterVec
	activities      *prometheus.CounterVec
	activityPoints  *prometheus.CounterVec
	levelUps        prometheus.Counter
	completions     prometheus.Counter
	rewardClaims    *prometheus.CounterVec

	recommendations  *prometheus.CounterVec
	recommendLatency *prometheus.HistogramVec

	realtimePeers      *prometheus.GaugeVec
	realtimeBroadcasts *prometheus.CounterVec
	realtimeDropped    *prometheus.CounterVec
	busFailures        prometheus.Counter

	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge

	sloCompliance *prometheus.GaugeVec
	sloBudget     *prometheus.GaugeVec
	sloBurn       *prometheus.GaugeVec

	sli sliTotals
}

// sliTotals are the running good/bad counts the SLO evaluator samples.
type sliTotals struct {
	apiTotal, apiErrors, apiFast      prometheus.Counter
	writeTotal, writeErrors           prometheus.Counter
	recommendTotal, recommendFailures prometheus.Counter
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process metrics, or nil when disabled.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger, cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics(cfg)
		if log != nil {
			log.Info("Observability metrics enabled", "latency_threshold", cfg.LatencyThreshold.String())
		}
	})
	return instance
}

func newMetrics(cfg MetricsConfig) *Metrics {
	reg := prometheus.NewRegistry()
	f := factory{reg: reg}
	m := &Metrics{
		reg: reg,
		cfg: cfg,

		apiRequests: f.counterVec("api", "requests_total", "API requests by method, route and status.", "method", "route", "status"),
		apiLatency: f.histogramVec("api", "request_duration_seconds", "API request latency by method, route and status.",
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}, "method", "route", "status"),
		apiInflight: f.gauge("api", "inflight_requests", "In-flight API requests."),

		growthWrites: f.counterVec("growth", "writes_total", "Growth aggregate writes by operation and status.", "operation", "status"),
		growthLatency: f.histogramVec("growth", "write_duration_seconds", "Growth aggregate write latency by operation.",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2}, "operation"),
		growthConflicts: f.counterVec("growth", "conflicts_total", "Growth writes rejected as conflicts.", "operation"),
		growthRetries:   f.counterVec("growth", "retries_total", "Growth writes that failed with a retryable error.", "operation"),
		activities:      f.counterVec("growth", "activities_total", "Accepted activity submissions by type.", "activity"),
		activityPoints:  f.counterVec("growth", "activity_points_total", "Experience granted by activity type.", "activity"),
		levelUps:        f.counter("growth", "level_ups_total", "Plant level transitions."),
		completions:     f.counter("growth", "plants_completed_total", "Plants that reached completion."),
		rewardClaims:    f.counterVec("growth", "reward_claims_total", "Reward claims by reward.", "reward"),

		recommendations: f.counterVec("recommend", "requests_total", "Recommendation requests by outcome.", "outcome"),
		recommendLatency: f.histogramVec("recommend", "duration_seconds", "Recommendation latency by outcome.",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}, "outcome"),

		realtimePeers:      f.gaugeVec("realtime", "peers", "Connected realtime peers by channel kind.", "kind"),
		realtimeBroadcasts: f.counterVec("realtime", "broadcasts_total", "Realtime broadcasts by channel kind.", "kind"),
		realtimeDropped:    f.counterVec("realtime", "dropped_peers_total", "Peers dropped for a full outbound queue.", "kind"),
		busFailures:        f.counter("realtime", "bus_publish_failures_total", "Realtime bus publish failures."),

		redisUp:   f.gauge("redis", "up", "Redis reachability (1 up, 0 down)."),
		redisPing: f.gauge("redis", "ping_seconds", "Last Redis ping latency."),

		sloCompliance: f.gaugeVec("slo", "compliance", "SLI over the SLO window.", "slo", "window"),
		sloBudget:     f.gaugeVec("slo", "error_budget_remaining", "Error budget left, 0 to 1.", "slo", "window"),
		sloBurn:       f.gaugeVec("slo", "burn_rate", "Error budget burn rate.", "slo", "window"),

		sli: sliTotals{
			apiTotal:          f.counter("sli", "api_requests_total", "API requests counted for SLOs."),
			apiErrors:         f.counter("sli", "api_errors_total", "API requests answered with 5xx."),
			apiFast:           f.counter("sli", "api_fast_requests_total", "API requests within the latency threshold."),
			writeTotal:        f.counter("sli", "growth_writes_total", "Growth writes counted for SLOs."),
			writeErrors:       f.counter("sli", "growth_write_errors_total", "Growth writes failing on infrastructure."),
			recommendTotal:    f.counter("sli", "recommendations_total", "Recommendations counted for SLOs."),
			recommendFailures: f.counter("sli", "recommendation_failures_total", "Recommendations that failed internally."),
		},
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil || addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && log != nil {
			log.Error("Metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method, route, status = orDefault(method, "UNKNOWN"), orDefault(route, "unknown"), orDefault(status, "0")
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
	m.sli.apiTotal.Inc()
	if len(status) == 3 && status[0] == '5' {
		m.sli.apiErrors.Inc()
	}
	if m.cfg.LatencyThreshold > 0 && dur <= m.cfg.LatencyThreshold {
		m.sli.apiFast.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveGrowthWrite records one finished growth aggregate write. Business rejections
// such as conflict or precondition_failed do not count against the write SLO.
func (m *Metrics) ObserveGrowthWrite(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	op, status = orDefault(op, "unknown"), orDefault(status, "unknown")
	m.growthWrites.WithLabelValues(op, status).Inc()
	m.growthLatency.WithLabelValues(op).Observe(dur.Seconds())
	m.sli.writeTotal.Inc()
	switch status {
	case "internal", "retryable", "invariant_violation":
		m.sli.writeErrors.Inc()
	}
}

func (m *Metrics) IncGrowthConflict(op string) {
	if m != nil {
		m.growthConflicts.WithLabelValues(orDefault(op, "unknown")).Inc()
	}
}

func (m *Metrics) IncGrowthRetry(op string) {
	if m != nil {
		m.growthRetries.WithLabelValues(orDefault(op, "unknown")).Inc()
	}
}

// ObserveActivity records one accepted activity submission and its plant transition.
func (m *Metrics) ObserveActivity(activity string, points int, levelUp, completed bool) {
	if m == nil {
		return
	}
	activity = orDefault(activity, "unknown")
	m.activities.WithLabelValues(activity).Inc()
	m.activityPoints.WithLabelValues(activity).Add(float64(points))
	if levelUp {
		m.levelUps.Inc()
	}
	if completed {
		m.completions.Inc()
	}
}

func (m *Metrics) IncRewardClaim(reward string) {
	if m != nil {
		m.rewardClaims.WithLabelValues(orDefault(reward, "unknown")).Inc()
	}
}

func (m *Metrics) ObserveRecommendation(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	outcome = orDefault(outcome, "unknown")
	m.recommendations.WithLabelValues(outcome).Inc()
	m.recommendLatency.WithLabelValues(outcome).Observe(dur.Seconds())
	m.sli.recommendTotal.Inc()
	if outcome == "failed" {
		m.sli.recommendFailures.Inc()
	}
}

func (m *Metrics) RealtimeConnected(kind string) {
	if m != nil {
		m.realtimePeers.WithLabelValues(orDefault(kind, "unknown")).Inc()
	}
}

func (m *Metrics) RealtimeDisconnected(kind string) {
	if m != nil {
		m.realtimePeers.WithLabelValues(orDefault(kind, "unknown")).Dec()
	}
}

func (m *Metrics) IncRealtimeBroadcast(kind string) {
	if m != nil {
		m.realtimeBroadcasts.WithLabelValues(orDefault(kind, "unknown")).Inc()
	}
}

func (m *Metrics) IncRealtimeDropped(kind string) {
	if m != nil {
		m.realtimeDropped.WithLabelValues(orDefault(kind, "unknown")).Inc()
	}
}

func (m *Metrics) IncRealtimeBusFailure() {
	if m != nil {
		m.busFailures.Inc()
	}
}

// RegisterDBStats exports the connection pool stats of the database behind db.
func (m *Metrics) RegisterDBStats(log *logger.Logger, db *gorm.DB, name string) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("DB stats unavailable", "error", err)
		}
		return
	}
	if err := m.reg.Register(collectors.NewDBStatsCollector(sqlDB, orDefault(name, "famspace"))); err != nil && log != nil {
		log.Warn("DB stats collector not registered", "error", err)
	}
}

// StartRedisProbe pings addr every scrape interval until ctx ends.
func (m *Metrics) StartRedisProbe(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil || addr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		defer rdb.Close()
		ticker := time.NewTicker(m.cfg.ScrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("Redis health check failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// counterValue reads a counter's current value through its protobuf form.
func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type factory struct {
	reg prometheus.Registerer
}

func (f factory) counter(subsystem, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
	f.reg.MustRegister(c)
	return c
}

func (f factory) counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
	f.reg.MustRegister(c)
	return c
}

func (f factory) gauge(subsystem, name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
	f.reg.MustRegister(g)
	return g
}

func (f factory) gaugeVec(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
	f.reg.MustRegister(g)
	return g
}

func (f factory) histogramVec(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
	f.reg.MustRegister(h)
	return h
}
