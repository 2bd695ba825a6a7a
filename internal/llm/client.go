package llm

import (
	"context"
	"fmt"
)

// GenerationParams are the sampling parameters sent with a completion call.
// The zero Temperature is meaningful (greedy decoding), so params are always
// serialized in full rather than omitted when zero.
type GenerationParams struct {
	MaxTokens         int
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
}

// Deterministic reports whether the params request greedy decoding, which
// makes the completion safe to cache.
func (p GenerationParams) Deterministic() bool {
	return p.Temperature == 0
}

// DeterministicParams are used for extraction-style tasks (ranking,
// validation) where the same input should yield the same output.
func DeterministicParams() GenerationParams {
	return GenerationParams{
		MaxTokens:         1024,
		Temperature:       0,
		TopP:              0.7,
		TopK:              50,
		RepetitionPenalty: 1,
	}
}

// CreativeParams are used for negotiation, where varied phrasing is
// desirable.
func CreativeParams() GenerationParams {
	return GenerationParams{
		MaxTokens:         1024,
		Temperature:       0.7,
		TopP:              0.9,
		TopK:              50,
		RepetitionPenalty: 1,
	}
}

// ChatParams are used for open-ended chat, with a larger token budget.
func ChatParams() GenerationParams {
	p := CreativeParams()
	p.MaxTokens = 2048
	return p
}

// Usage tracks token usage and cost for a completion call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// CompletionClient sends a prompt to a model endpoint and returns the raw
// text of the single completion choice. Implementations must return a
// *GatewayError for any transport, auth, or quota failure.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// GatewayError indicates the model call itself failed (network, auth,
// quota). It is distinct from a malformed model response, which the caller
// detects after a successful call.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model gateway call failed: %v", e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func gatewayErrorf(format string, a ...any) error {
	return &GatewayError{Err: fmt.Errorf(format, a...)}
}

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
