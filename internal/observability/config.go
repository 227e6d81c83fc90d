package observability

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config gathers the observability knobs. It is read straight from the environment;
// service identity is filled in by the caller.
type Config struct {
	Metrics MetricsConfig
	Tracing TracingConfig
	SLO     SLOConfig
}

type MetricsConfig struct {
	Enabled        bool          `env:"METRICS_ENABLED"`
	ScrapeInterval time.Duration `env:"METRICS_SCRAPE_INTERVAL" envDefault:"10s"`
	// Requests at or under this latency count as good for the latency SLO.
	LatencyThreshold time.Duration `env:"SLO_API_LATENCY_THRESHOLD" envDefault:"500ms"`
}

type TracingConfig struct {
	Enabled     bool              `env:"OTEL_ENABLED"`
	Endpoint    string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers     map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS" envKeyValSeparator:"="`
	Insecure    bool              `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	SampleRatio float64           `env:"OTEL_SAMPLER_RATIO" envDefault:"0.1"`

	ServiceName string `env:"-"`
	Environment string `env:"-"`
	Version     string `env:"SERVICE_VERSION"`
}

type SLOConfig struct {
	Enabled  bool          `env:"SLO_ENABLED"`
	Interval time.Duration `env:"SLO_EVAL_INTERVAL" envDefault:"1m"`
	Window   time.Duration `env:"SLO_WINDOW" envDefault:"720h"`

	APIAvailability float64 `env:"SLO_API_AVAIL_TARGET" envDefault:"0.995"`
	APILatency      float64 `env:"SLO_API_LATENCY_TARGET" envDefault:"0.95"`
	GrowthWrites    float64 `env:"SLO_GROWTH_WRITE_TARGET" envDefault:"0.999"`
	Recommendations float64 `env:"SLO_RECOMMENDATION_TARGET" envDefault:"0.99"`

	AlertWebhook     string        `env:"SLO_ALERT_WEBHOOK_URL"`
	AlertOwner       string        `env:"SLO_ALERT_OWNER"`
	AlertRunbook     string        `env:"SLO_ALERT_RUNBOOK_URL"`
	AlertMinInterval time.Duration `env:"SLO_ALERT_MIN_INTERVAL" envDefault:"15m"`
	BurnWarn         float64       `env:"SLO_ALERT_BURN_RATE_WARN" envDefault:"2"`
	BurnCrit         float64       `env:"SLO_ALERT_BURN_RATE_CRIT" envDefault:"10"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("observability config: %w", err)
	}
	cfg.Tracing.SampleRatio = clamp01(cfg.Tracing.SampleRatio)
	if cfg.Metrics.ScrapeInterval <= 0 {
		cfg.Metrics.ScrapeInterval = 10 * time.Second
	}
	if cfg.SLO.Interval <= 0 {
		cfg.SLO.Interval = time.Minute
	}
	if cfg.SLO.Window < time.Hour {
		cfg.SLO.Window = 24 * time.Hour
	}
	for _, target := range []*float64{&cfg.SLO.APIAvailability, &cfg.SLO.APILatency, &cfg.SLO.GrowthWrites, &cfg.SLO.Recommendations} {
		*target = clamp01(*target)
	}
	return cfg, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
