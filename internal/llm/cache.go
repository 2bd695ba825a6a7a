package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CompletionCache persists completions from deterministic calls.
type CompletionCache interface {
	GetCompletion(key string) (string, bool, error)
	SetCompletion(key, model, response string) error
}

// CachedClient wraps a CompletionClient with persistent caching. Only
// deterministic calls (temperature 0) are cached; negotiation and chat
// calls always go to the backend.
type CachedClient struct {
	inner CompletionClient
	store CompletionCache
	model string
}

// NewCachedClient creates a cached client. The model label is part of the
// cache key so different backends never share entries.
func NewCachedClient(inner CompletionClient, model string, store CompletionCache) *CachedClient {
	return &CachedClient{inner: inner, store: store, model: model}
}

// hashCall creates a cache key from the model, params and prompt. Length
// prefixes prevent boundary collisions between model and prompt.
func hashCall(model, prompt string, params GenerationParams) string {
	h := sha256.New()
	binary.Write(h, binary.LittleEndian, int64(len(model)))
	h.Write([]byte(model))
	fmt.Fprintf(h, "%d|%g|%g|%d|%g|", params.MaxTokens, params.Temperature, params.TopP, params.TopK, params.RepetitionPenalty)
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Complete implements CompletionClient with caching.
func (c *CachedClient) Complete(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if !params.Deterministic() || c.store == nil {
		return c.inner.Complete(ctx, prompt, params)
	}

	key := hashCall(c.model, prompt, params)

	cached, ok, err := c.store.GetCompletion(key)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check completion cache")
	} else if ok {
		log.Debug().Str("key", key[:16]).Msg("completion cache hit")
		return cached, nil
	}

	response, err := c.inner.Complete(ctx, prompt, params)
	if err != nil {
		return "", err
	}

	if err := c.store.SetCompletion(key, c.model, response); err != nil {
		log.Warn().Err(err).Msg("failed to cache completion")
	} else {
		log.Debug().Str("key", key[:16]).Msg("cached completion")
	}

	return response, nil
}

var _ CompletionClient = (*CachedClient)(nil)
