package agent

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vesal/haggler/internal/llm"
)

// Turn roles. Either side may send consecutive turns; alternation is not
// enforced.
const (
	RoleAssistant = "assistant"
	RoleSeller    = "seller"
)

// Turn is one message within a negotiation. Offer is nil until the
// assistant names a price.
type Turn struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Reasoning string   `json:"reasoning,omitempty"`
	Offer     *float64 `json:"current_offer,omitempty"`
}

// NegotiationRequest carries everything the stage needs for one turn. The
// history is the full conversation so far, caller-owned; the stage is
// stateless between calls.
type NegotiationRequest struct {
	Context string  // item condition and features
	Goal    string  // the user's stated goal, in natural language
	Budget  float64 // hard ceiling on any offer
	History []Turn
}

// NegotiationResult is one generated assistant turn plus whether the
// turn's message ends the negotiation. An ended conversation is the
// caller's cue to stop issuing requests; the stage itself stays stateless.
type NegotiationResult struct {
	Turn              Turn
	ConversationEnded bool
}

// endingPhrases are the canonical acceptance/abandonment messages the
// negotiation prompt instructs the model to use verbatim. The phrases are
// stored pre-normalized.
var endingPhrases = []string{
	farewellPhrase,
	acceptancePhrase,
}

const (
	farewellPhrase   = "thank you all the best"
	acceptancePhrase = "amazing thank you"
)

// IsAcceptanceMessage reports whether the message signals an agreed deal,
// as opposed to walking away. Only meaningful for messages that already
// classify as ending.
func IsAcceptanceMessage(message string) bool {
	return strings.HasSuffix(normalizeMessage(message), acceptancePhrase)
}

// IsEndingMessage classifies a message as ending the negotiation. Matching
// is case-insensitive and ignores punctuation, so "THANK YOU, ALL THE
// BEST!" ends a conversation just like the canonical phrase. The match is
// anchored to the end of the message: the prompt instructs the model to
// say the phrase and nothing else, and a message that merely mentions the
// phrase mid-sentence keeps negotiating.
func IsEndingMessage(message string) bool {
	normalized := normalizeMessage(message)
	for _, phrase := range endingPhrases {
		if strings.HasSuffix(normalized, phrase) {
			return true
		}
	}
	return false
}

func normalizeMessage(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// flattenTranscript renders the history as role-prefixed lines in original
// order. This is the entire negotiation memory; long sessions grow the
// prompt linearly.
func flattenTranscript(history []Turn) string {
	var lines []string
	for _, t := range history {
		lines = append(lines, t.Role+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// Negotiate generates the next assistant turn for the session. The turn is
// rejected with a ContractViolationError when it carries an offer above the
// budget ceiling — a monetary offer is never silently clamped — and is then
// not meant to be appended to the history.
func (a *Agent) Negotiate(ctx context.Context, req NegotiationRequest) (*NegotiationResult, error) {
	prompt := buildNegotiatePrompt(req.Context, req.Goal, flattenTranscript(req.History))
	log.Debug().Str("prompt", prompt).Msg("negotiation llm input")

	raw, err := a.client.Complete(ctx, prompt, llm.CreativeParams())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("response", raw).Msg("negotiation llm output")

	sanitized, err := ExtractJSON(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	turn, err := decodeTurn(sanitized)
	if err != nil {
		return nil, err
	}

	if turn.Offer != nil && *turn.Offer > req.Budget {
		return nil, contractViolationf(sanitized, "offer %.2f exceeds budget ceiling %.2f", *turn.Offer, req.Budget)
	}

	ended := IsEndingMessage(turn.Content)
	if ended {
		log.Info().Str("content", turn.Content).Msg("negotiation ended")
	}

	return &NegotiationResult{Turn: turn, ConversationEnded: ended}, nil
}
