package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

// NotifyContext is cancelled on the first SIGINT or SIGTERM. A second signal exits at once.
func NotifyContext(parent context.Context, log *logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			if log != nil {
				log.Info("shutdown requested", "signal", sig.String())
			}
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-sigs:
			if log != nil {
				log.Warn("forced exit", "signal", sig.String())
			}
			os.Exit(130)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
			cancel()
		})
	}
}
