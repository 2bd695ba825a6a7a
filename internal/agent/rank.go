package agent

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/vesal/haggler/internal/llm"
	"github.com/vesal/haggler/internal/market"
)

// Rank asks the model to order the listings by relevance to the request and
// returns the echoed subset. Ordering is entirely the model's judgment; the
// stage only enforces that every returned element corresponds to an input
// listing. A null or empty answer is a valid empty result.
func (a *Agent) Rank(ctx context.Context, request string, listings []market.Listing) ([]RankedListing, error) {
	if len(listings) == 0 {
		return []RankedListing{}, nil
	}

	prompt := buildRankPrompt(request, listings, a.rankFields, a.maxRanked)
	log.Debug().Str("prompt", prompt).Msg("ranking llm input")

	raw, err := a.client.Complete(ctx, prompt, llm.DeterministicParams())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("response", raw).Msg("ranking llm output")

	if isNullResponse(raw) {
		return []RankedListing{}, nil
	}

	sanitized, err := ExtractJSON(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	return decodeRanked(sanitized, a.rankFields, listings)
}
