package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

// window keeps the last n per-tick deltas of a counter and their sum.
type window struct {
	slots []float64
	next  int
	sum   float64
	prev  float64
}

func newWindow(n int) *window {
	if n < 1 {
		n = 1
	}
	return &window{slots: make([]float64, n)}
}

// sample pushes the growth of a monotonic total since the last sample. A total that went
// down means the process restarted its counters, so the whole value counts.
func (w *window) sample(total float64) {
	d := total - w.prev
	if total < w.prev {
		d = total
	}
	w.prev = total
	w.sum += d - w.slots[w.next]
	w.slots[w.next] = d
	w.next = (w.next + 1) % len(w.slots)
}

// objective pairs a target with the counters its SLI is computed from.
type objective struct {
	name   string
	target float64
	total  prometheus.Counter
	// bad counts failures; when inverted it counts successes instead.
	bad      prometheus.Counter
	inverted bool

	totalWin, badWin *window
}

func (o *objective) sample() (total, bad float64) {
	o.totalWin.sample(counterValue(o.total))
	o.badWin.sample(counterValue(o.bad))
	total, bad = o.totalWin.sum, o.badWin.sum
	if o.inverted {
		bad = total - bad
	}
	return total, bad
}

type SLOEvaluator struct {
	metrics *Metrics
	log     *logger.Logger
	cfg     SLOConfig
	label   string
	client  *http.Client

	objectives []*objective

	alertMu    sync.Mutex
	lastAlerts map[string]time.Time
}

func (m *Metrics) StartSLOEvaluator(ctx context.Context, log *logger.Logger, cfg SLOConfig) {
	if m == nil || !cfg.Enabled {
		return
	}
	e := newSLOEvaluator(m, log, cfg)
	go e.run(ctx)
	if log != nil {
		log.Info("SLO evaluator started", "window", e.label, "interval", cfg.Interval.String())
	}
}

func newSLOEvaluator(m *Metrics, log *logger.Logger, cfg SLOConfig) *SLOEvaluator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Window < cfg.Interval {
		cfg.Window = cfg.Interval
	}
	slots := int(cfg.Window / cfg.Interval)
	mk := func(name string, target float64, total, bad prometheus.Counter, inverted bool) *objective {
		return &objective{
			name: name, target: target, total: total, bad: bad, inverted: inverted,
			totalWin: newWindow(slots), badWin: newWindow(slots),
		}
	}
	return &SLOEvaluator{
		metrics: m,
		log:     log,
		cfg:     cfg,
		label:   windowLabel(cfg.Window),
		client:  &http.Client{Timeout: 5 * time.Second},
		objectives: []*objective{
			mk("api_availability", cfg.APIAvailability, m.sli.apiTotal, m.sli.apiErrors, false),
			mk("api_latency", cfg.APILatency, m.sli.apiTotal, m.sli.apiFast, true),
			mk("growth_write_success", cfg.GrowthWrites, m.sli.writeTotal, m.sli.writeErrors, false),
			mk("recommendation_success", cfg.Recommendations, m.sli.recommendTotal, m.sli.recommendFailures, false),
		},
		lastAlerts: map[string]time.Time{},
	}
}

func (e *SLOEvaluator) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluate(ctx)
		}
	}
}

func (e *SLOEvaluator) evaluate(ctx context.Context) {
	for _, o := range e.objectives {
		total, bad := o.sample()
		sli, burn, budget := 1.0, 0.0, 1.0
		if total > 0 {
			sli = clamp01(1 - bad/total)
			if o.target < 1 {
				burn = (1 - sli) / (1 - o.target)
			}
			budget = clamp01(1 - burn)
		}
		e.metrics.sloCompliance.WithLabelValues(o.name, e.label).Set(sli)
		e.metrics.sloBudget.WithLabelValues(o.name, e.label).Set(budget)
		e.metrics.sloBurn.WithLabelValues(o.name, e.label).Set(burn)

		if severity := e.severity(burn); severity != "" && e.shouldAlert(o.name, severity, time.Now()) {
			e.sendAlert(ctx, alert{
				SLO: o.name, Severity: severity, Window: e.label, SLI: sli,
				Target: o.target, BurnRate: burn, BudgetRemaining: budget,
			})
		}
	}
}

func (e *SLOEvaluator) severity(burn float64) string {
	if e.cfg.AlertWebhook == "" || e.cfg.AlertOwner == "" {
		return ""
	}
	switch {
	case burn >= e.cfg.BurnCrit:
		return "critical"
	case burn >= e.cfg.BurnWarn:
		return "warning"
	}
	return ""
}

// shouldAlert rate limits alerts per SLO and severity.
func (e *SLOEvaluator) shouldAlert(slo, severity string, now time.Time) bool {
	key := slo + ":" + severity
	e.alertMu.Lock()
	defer e.alertMu.Unlock()
	if last, ok := e.lastAlerts[key]; ok && now.Sub(last) < e.cfg.AlertMinInterval {
		return false
	}
	e.lastAlerts[key] = now
	return true
}

type alert struct {
	Title           string  `json:"title"`
	Owner           string  `json:"owner"`
	Runbook         string  `json:"runbook,omitempty"`
	SLO             string  `json:"slo"`
	Severity        string  `json:"severity"`
	Window          string  `json:"window"`
	SLI             float64 `json:"sli"`
	Target          float64 `json:"target"`
	BurnRate        float64 `json:"burn_rate"`
	BudgetRemaining float64 `json:"error_budget_remaining"`
	Timestamp       string  `json:"timestamp"`
}

func (e *SLOEvaluator) sendAlert(ctx context.Context, a alert) {
	a.Title = "famspace SLO burn rate"
	a.Owner = e.cfg.AlertOwner
	a.Runbook = e.cfg.AlertRunbook
	a.Timestamp = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(a)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.AlertWebhook, bytes.NewReader(body))
	if err != nil {
		e.warn("SLO alert request invalid", a.SLO, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		e.warn("SLO alert not delivered", a.SLO, err)
		return
	}
	_ = resp.Body.Close()
	if e.log != nil {
		e.log.Info("SLO alert sent", "slo", a.SLO, "severity", a.Severity, "status", resp.StatusCode)
	}
}

func (e *SLOEvaluator) warn(msg, slo string, err error) {
	if e.log != nil {
		e.log.Warn(msg, "slo", slo, "error", err)
	}
}

func windowLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	return fmt.Sprintf("%dm", d/time.Minute)
}
