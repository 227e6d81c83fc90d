package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"github.com/yungbote/famspace-backend/internal/realtime"
)

const (
	defaultChannel = "famspace.realtime"
	envelopeV1     = 1
	slowDelivery   = 2 * time.Second
)

// envelope is what travels on the redis channel. Origin names the publishing
// instance so delivery lag can be attributed when debugging fan-out.
type envelope struct {
	V       int              `json:"v"`
	Origin  string           `json:"origin"`
	SentAt  time.Time        `json:"sent_at"`
	Message realtime.Message `json:"message"`
}

type RedisOptions struct {
	Addr     string
	Channel  string
	Password string
	DB       int
	// PingTimeout bounds the connectivity check done at construction.
	PingTimeout time.Duration
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	origin  string
	now     func() time.Time
}

func NewRedisBus(log *logger.Logger, addr, channel string) (Bus, error) {
	return NewRedisBusWithOptions(log, RedisOptions{Addr: addr, Channel: channel})
}

func NewRedisBusWithOptions(log *logger.Logger, opts RedisOptions) (Bus, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	opts.Addr = strings.TrimSpace(opts.Addr)
	if opts.Addr == "" {
		return nil, errors.New("missing REDIS_ADDR")
	}
	if opts.Channel = strings.TrimSpace(opts.Channel); opts.Channel == "" {
		opts.Channel = defaultChannel
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.PingTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), opts.PingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	origin := ulid.Make().String()
	return &redisBus{
		log:     log.With("service", "RedisRealtimeBus", "origin", origin, "channel", opts.Channel),
		rdb:     rdb,
		channel: opts.Channel,
		origin:  origin,
		now:     time.Now,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.Message) error {
	if b == nil || b.rdb == nil {
		return errors.New("redis realtime bus not initialized")
	}
	raw, err := encodeEnvelope(b.origin, b.now().UTC(), msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes and hands every decoded message, including this
// instance's own, to onMsg until ctx ends.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if b == nil || b.rdb == nil {
		return errors.New("redis realtime bus not initialized")
	}
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok || m == nil {
					b.log.Warn("redis realtime subscription closed")
					return
				}
				env, err := decodeEnvelope([]byte(m.Payload))
				if err != nil {
					b.log.Warn("dropping realtime payload", "error", err)
					continue
				}
				if lag := b.now().Sub(env.SentAt); lag > slowDelivery {
					b.log.Debug("slow realtime delivery", "from", env.Origin, "lag", lag.String())
				}
				onMsg(env.Message)
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func encodeEnvelope(origin string, at time.Time, msg realtime.Message) ([]byte, error) {
	if strings.TrimSpace(msg.Channel) == "" {
		return nil, errors.New("message channel required")
	}
	return json.Marshal(envelope{V: envelopeV1, Origin: origin, SentAt: at, Message: msg})
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.V != envelopeV1 {
		return envelope{}, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	if env.Message.Channel == "" {
		return envelope{}, errors.New("envelope without channel")
	}
	return env, nil
}
