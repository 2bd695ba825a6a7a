package agent

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/vesal/haggler/internal/llm"
	"github.com/vesal/haggler/internal/market"
)

// Validate asks the model for a relevance verdict, reasoning, and a drafted
// first message for each listing. The model must answer with exactly one
// verdict per listing, in input order; the stage never realigns by
// identifier because re-listed items can collide on it.
func (a *Agent) Validate(ctx context.Context, request string, listings []market.Listing) ([]Verdict, error) {
	if len(listings) == 0 {
		return []Verdict{}, nil
	}

	prompt := buildValidatePrompt(request, listings)
	log.Debug().Str("prompt", prompt).Msg("validation llm input")

	raw, err := a.client.Complete(ctx, prompt, llm.DeterministicParams())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("response", raw).Msg("validation llm output")

	sanitized, err := ExtractJSON(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	return decodeVerdicts(sanitized, len(listings))
}
