// Package agent implements the buyer-side orchestration pipeline: it turns
// free-form model output into typed ranking, validation, and negotiation
// results, and enforces the contracts the model is only instructed to
// follow.
package agent

import "github.com/vesal/haggler/internal/llm"

// Agent runs the ranking, validation, and negotiation stages against a
// completion backend. It holds no per-request state; negotiation history is
// supplied by the caller on every call, so concurrent use across different
// sessions is safe. A single session must have at most one in-flight call
// at a time — that serialization is the caller's responsibility.
type Agent struct {
	client     llm.CompletionClient
	rankFields []RankField
	maxRanked  int
}

// Option configures an Agent.
type Option func(*Agent)

// WithRankFields sets the listing fields the ranking stage asks the model
// to echo back and requires in its answer.
func WithRankFields(fields ...RankField) Option {
	return func(a *Agent) {
		a.rankFields = fields
	}
}

// WithMaxRanked sets how many listings the ranking stage asks for.
func WithMaxRanked(n int) Option {
	return func(a *Agent) {
		a.maxRanked = n
	}
}

// New creates an Agent using the given completion backend.
func New(client llm.CompletionClient, opts ...Option) *Agent {
	a := &Agent{
		client:     client,
		rankFields: DefaultRankFields,
		maxRanked:  3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
