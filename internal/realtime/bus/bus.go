package bus

import (
	"context"

	"github.com/yungbote/famspace-backend/internal/realtime"
)

// Bus carries realtime messages between service instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
