package agent

import (
	"context"

	"github.com/vesal/haggler/internal/llm"
)

// Chat passes a free-form message to the model and returns the raw answer.
// Unlike the structured stages there is no sanitization or contract; only
// gateway failures surface as errors.
func (a *Agent) Chat(ctx context.Context, message string) (string, error) {
	return a.client.Complete(ctx, message, llm.ChatParams())
}
