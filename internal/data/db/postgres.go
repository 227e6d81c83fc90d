package db

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/platform/envutil"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresService connects using the POSTGRES_* variables.
func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	log := logg.With("service", "PostgresService")

	dsn := postgresDSN(
		envutil.String("POSTGRES_HOST", "localhost", logg),
		envutil.String("POSTGRES_PORT", "5432", logg),
		envutil.String("POSTGRES_USER", "postgres", logg),
		envutil.String("POSTGRES_PASSWORD", "", logg),
		envutil.String("POSTGRES_NAME", "famspace", logg),
		envutil.String("POSTGRES_SSLMODE", "disable", logg),
	)
	gdb, err := gorm.Open(postgres.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	maxOpen := envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20, logg)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen / 2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("postgres connected", "max_open_conns", maxOpen)
	return &PostgresService{db: gdb, log: log}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func postgresDSN(host, port, user, password, name, sslmode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}
