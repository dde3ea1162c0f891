package utils

import (
	"context"
)

// GracefulShutdown waits for the context to be cancelled (e.g. SIGINT) and
// then runs the session cleanup exactly once.
func GracefulShutdown(ctx context.Context, onShutdown func()) {
	<-ctx.Done()
	onShutdown()
}
