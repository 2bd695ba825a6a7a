package agent

import (
	"context"

	"github.com/vesal/haggler/internal/llm"
	"github.com/vesal/haggler/internal/market"
)

// fakeClient is a canned-response CompletionClient for stage tests.
type fakeClient struct {
	response string
	err      error
	prompts  []string
	params   []llm.GenerationParams
}

func (f *fakeClient) Complete(_ context.Context, prompt string, params llm.GenerationParams) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.params = append(f.params, params)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func pianoListings() []market.Listing {
	return []market.Listing{
		{URL: "https://m.example.com/1", Description: "Beautiful upright piano in great condition", Price: 1000},
		{URL: "https://m.example.com/2", Description: "Yamaha digital piano, barely used", Price: 500},
		{URL: "https://m.example.com/3", Description: "Steinway grand piano, needs tuning", Price: 5000},
		{URL: "https://m.example.com/4", Description: "Acoustic guitar, perfect for beginners", Price: 200},
		{URL: "https://m.example.com/5", Description: "Roland digital piano, like new", Price: 800},
	}
}
