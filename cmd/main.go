package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/famspace-backend/internal/app"
	"github.com/yungbote/famspace-backend/internal/platform/shutdown"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	a, err := app.New(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := shutdown.NotifyContext(context.Background(), a.Log)
	defer stop()

	if err := a.Run(ctx); err != nil {
		a.Log.Error("server exited", "error", err)
		stop()
		a.Close()
		os.Exit(1)
	}
}
