package contracts

import (
	"context"

	"github.com/meysamhadeli/codai-studio/providers/models"
)

// IChatAIProvider is the wire adapter each provider implements. The returned
// channel emits one StreamResponse per decoded delta, a Done marker when the
// provider signals end of stream, and is closed when the request finishes.
type IChatAIProvider interface {
	ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse
}
