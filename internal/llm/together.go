package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	TogetherBaseURL      = "https://api.together.xyz"
	DefaultTogetherModel = "meta-llama/Meta-Llama-3.1-405B-Instruct-Turbo"
)

// Together pricing for Llama 3.1 405B Turbo (per million tokens)
const (
	togetherInputPricePerMillion  = 3.50
	togetherOutputPricePerMillion = 3.50
)

// TogetherClient calls the Together chat completions API.
type TogetherClient struct {
	httpClient *resty.Client
	model      string
}

// TogetherOpts configures a TogetherClient. BaseURL defaults to
// TogetherBaseURL and Model to DefaultTogetherModel.
type TogetherOpts struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewTogetherClient creates a Together-backed completion client.
func NewTogetherClient(opts TogetherOpts) *TogetherClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = TogetherBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultTogetherModel
	}
	httpClient := resty.New().
		SetDebug(false).
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+opts.APIKey).
		SetHeader("Content-Type", "application/json")

	return &TogetherClient{httpClient: httpClient, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model             string        `json:"model"`
	Messages          []chatMessage `json:"messages"`
	MaxTokens         int           `json:"max_tokens"`
	Temperature       float64       `json:"temperature"`
	TopP              float64       `json:"top_p"`
	TopK              int           `json:"top_k"`
	RepetitionPenalty float64       `json:"repetition_penalty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements CompletionClient against the chat completions endpoint.
func (c *TogetherClient) Complete(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	body := chatCompletionRequest{
		Model:             c.model,
		Messages:          []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:         params.MaxTokens,
		Temperature:       params.Temperature,
		TopP:              params.TopP,
		TopK:              params.TopK,
		RepetitionPenalty: params.RepetitionPenalty,
	}

	result := &chatCompletionResponse{}
	resp, err := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(result).
		Post("/v1/chat/completions")
	if err != nil {
		return "", &GatewayError{Err: err}
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", gatewayErrorf("completion request failed with status %d: %s", resp.StatusCode(), result.Error.Message)
		}
		return "", gatewayErrorf("completion request failed with status %d", resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return "", gatewayErrorf("no completion choices in response")
	}

	usage := Usage{
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		TotalTokens:  result.Usage.TotalTokens,
		CostUSD:      calculateCost(result.Usage.PromptTokens, result.Usage.CompletionTokens, togetherInputPricePerMillion, togetherOutputPricePerMillion),
	}

	log.Info().
		Str("model", c.model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Float64("temperature", params.Temperature).
		Msg("completion llm call")

	return result.Choices[0].Message.Content, nil
}

// Model returns the model identifier used for completions.
func (c *TogetherClient) Model() string {
	return c.model
}

var _ CompletionClient = (*TogetherClient)(nil)

// String implements fmt.Stringer for log output.
func (c *TogetherClient) String() string {
	return fmt.Sprintf("together(%s)", c.model)
}
