package services

import (
	"context"

	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"github.com/yungbote/famspace-backend/internal/realtime"
	"github.com/yungbote/famspace-backend/internal/realtime/bus"
)

type Emitter interface {
	Emit(ctx context.Context, msg realtime.Message)
}

// RegistryEmitter fans out to peers connected to this process.
type RegistryEmitter struct{ Registry *realtime.Registry }

func (e *RegistryEmitter) Emit(ctx context.Context, msg realtime.Message) {
	if e == nil || e.Registry == nil {
		return
	}
	e.Registry.Broadcast(msg)
}

// RedisEmitter publishes to the bus; every instance's forwarder delivers to its own peers.
// When publishing fails the event is still delivered locally through Fallback.
type RedisEmitter struct {
	Bus      bus.Bus
	Fallback Emitter
	Log      *logger.Logger
}

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.Message) {
	if e == nil || e.Bus == nil {
		return
	}
	if err := e.Bus.Publish(ctx, msg); err != nil {
		observability.Current().IncRealtimeBusFailure()
		if e.Log != nil {
			e.Log.Warn("realtime bus publish failed", "channel", msg.Channel, "error", err)
		}
		if e.Fallback != nil {
			e.Fallback.Emit(ctx, msg)
		}
	}
}
