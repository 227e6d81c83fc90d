package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/envutil"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type Config struct {
	Env         string
	ServiceName string
	HTTPAddr    string
	MetricsAddr string
	CORSOrigins []string

	// Postgres connection fields are read by data/db from POSTGRES_*.
	DBDriver   string
	SQLitePath string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	StoreTimeout    time.Duration
	VerifyTimeout   time.Duration
	ShutdownTimeout time.Duration

	// Timezone sets the calendar day used for activity idempotency.
	Timezone string
	Location *time.Location

	RedisAddr    string
	RedisChannel string

	ScoringRulesPath string
	TeenAgeBand      string
	BaseLinePrice    int

	RealtimeQueueSize int

	Observability observability.Config
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Env:               envutil.String("APP_ENV", "development", log),
		ServiceName:       envutil.String("SERVICE_NAME", "famspace-api", log),
		HTTPAddr:          envutil.String("HTTP_ADDR", ":8080", log),
		MetricsAddr:       envutil.String("METRICS_ADDR", ":9090", log),
		CORSOrigins:       splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),
		DBDriver:          strings.ToLower(envutil.String("DB_DRIVER", DBDriverPostgres, log)),
		SQLitePath:        envutil.String("SQLITE_PATH", "data/famspace.db", log),
		JWTSecretKey:      envutil.String("JWT_SECRET_KEY", "", nil),
		AccessTokenTTL:    time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 86400, log)) * time.Second,
		StoreTimeout:      envutil.Duration("STORE_TIMEOUT", 5*time.Second, log),
		VerifyTimeout:     envutil.Duration("VERIFY_TIMEOUT", 3*time.Second, log),
		ShutdownTimeout:   envutil.Duration("SHUTDOWN_TIMEOUT", 10*time.Second, log),
		Timezone:          envutil.String("TIMEZONE", "Asia/Seoul", log),
		RedisAddr:         envutil.String("REDIS_ADDR", "", log),
		RedisChannel:      envutil.String("REDIS_CHANNEL", "famspace.realtime", log),
		ScoringRulesPath:  envutil.String("SCORING_RULES_PATH", "", log),
		TeenAgeBand:       envutil.String("TEEN_AGE_BAND", "teen", log),
		BaseLinePrice:     envutil.Int("BASE_LINE_PRICE", 0, log),
		RealtimeQueueSize: envutil.Int("REALTIME_QUEUE_SIZE", 32, log),
	}
	obs, err := observability.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	obs.Tracing.ServiceName = cfg.ServiceName
	obs.Tracing.Environment = cfg.Env
	cfg.Observability = obs
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
