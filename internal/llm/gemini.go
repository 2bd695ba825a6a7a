package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash-lite"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.075
	geminiOutputPricePerMillion = 0.30
)

// GeminiClient is an alternative completion backend using Google's Gemini
// API. The repetition penalty has no Gemini equivalent and is not sent.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed completion client. It uses the
// GEMINI_API_KEY environment variable for authentication.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete implements CompletionClient.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(params.Temperature)),
		TopP:            genai.Ptr(float32(params.TopP)),
		TopK:            genai.Ptr(float32(params.TopK)),
		MaxOutputTokens: int32(params.MaxTokens),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, config)
	if err != nil {
		return "", gatewayErrorf("gemini call failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", gatewayErrorf("empty response from gemini")
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", g.model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Float64("temperature", params.Temperature).
		Msg("completion llm call")

	return result.Text(), nil
}

// Model returns the model identifier used for completions.
func (g *GeminiClient) Model() string {
	return g.model
}

var _ CompletionClient = (*GeminiClient)(nil)
