package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured logger taking alternating key/value pairs. Values under
// sensitive keys are scrubbed before they reach zap.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         *scrubber
}

type Options struct {
	// Mode "production" (or "prod") logs JSON at info; "test" logs warnings and up;
	// anything else logs colored console output at debug.
	Mode string
	// Level overrides the mode's default when set, e.g. "debug" or "warn".
	Level string
	// Redact turns scrubbing of credentials and member identifiers on.
	Redact   bool
	HashSalt string
}

// New builds a logger for mode, reading LOG_LEVEL, LOG_REDACTION_ENABLED and
// LOG_HASH_SALT from the environment.
func New(mode string) (*Logger, error) {
	return NewWithOptions(Options{
		Mode:     mode,
		Level:    os.Getenv("LOG_LEVEL"),
		Redact:   !isOff(os.Getenv("LOG_REDACTION_ENABLED")),
		HashSalt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT")),
	})
}

func NewWithOptions(opts Options) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return wrap(z, opts), nil
}

// FromZap wraps an existing zap logger, e.g. one from zaptest.
func FromZap(z *zap.Logger, opts Options) *Logger {
	return wrap(z, opts)
}

func wrap(z *zap.Logger, opts Options) *Logger {
	l := &Logger{SugaredLogger: z.Sugar()}
	if opts.Redact {
		l.scrub = &scrubber{salt: opts.HashSalt}
	}
	return l
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.SugaredLogger.Debugw(msg, l.clean(kv)...) }
func (l *Logger) Info(msg string, kv ...any)  { l.SugaredLogger.Infow(msg, l.clean(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.SugaredLogger.Warnw(msg, l.clean(kv)...) }
func (l *Logger) Error(msg string, kv ...any) { l.SugaredLogger.Errorw(msg, l.clean(kv)...) }
func (l *Logger) Fatal(msg string, kv ...any) { l.SugaredLogger.Fatalw(msg, l.clean(kv)...) }

func (l *Logger) With(kv ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.clean(kv)...), scrub: l.scrub}
}

func (l *Logger) clean(kv []any) []any {
	if l.scrub == nil || len(kv) == 0 {
		return kv
	}
	return l.scrub.pairs(kv)
}

func isOff(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "off":
		return true
	}
	return false
}
