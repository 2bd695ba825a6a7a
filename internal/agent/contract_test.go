package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesal/haggler/internal/market"
)

func TestDecodeRanked(t *testing.T) {
	input := pianoListings()
	sanitized := `[
		{"url": "https://m.example.com/1", "description": "Beautiful upright piano in great condition", "price": 1000},
		{"url": "https://m.example.com/5", "description": "Roland digital piano, like new", "price": 800}
	]`

	ranked, err := decodeRanked(sanitized, DefaultRankFields, input)
	require.Nil(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "https://m.example.com/1", ranked[0].URL)
	assert.Equal(t, 800.0, ranked[1].Price)
}

func TestDecodeRankedNullAndEmpty(t *testing.T) {
	input := pianoListings()

	ranked, err := decodeRanked(`null`, DefaultRankFields, input)
	assert.Nil(t, err)
	assert.Empty(t, ranked)

	ranked, err = decodeRanked(`[]`, DefaultRankFields, input)
	assert.Nil(t, err)
	assert.Empty(t, ranked)
}

func TestDecodeRankedMissingField(t *testing.T) {
	input := pianoListings()
	sanitized := `[{"url": "https://m.example.com/1", "description": "Beautiful upright piano in great condition"}]`

	_, err := decodeRanked(sanitized, DefaultRankFields, input)
	var violation *ContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "price")
}

func TestDecodeRankedHallucinatedListing(t *testing.T) {
	input := pianoListings()
	sanitized := `[{"url": "https://m.example.com/99", "description": "Imaginary piano", "price": 1}]`

	_, err := decodeRanked(sanitized, DefaultRankFields, input)
	var violation *ContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "unknown listing")
}

func TestDecodeRankedDuplicate(t *testing.T) {
	input := pianoListings()
	sanitized := `[
		{"url": "https://m.example.com/1", "description": "Beautiful upright piano in great condition", "price": 1000},
		{"url": "https://m.example.com/1", "description": "Beautiful upright piano in great condition", "price": 1000}
	]`

	_, err := decodeRanked(sanitized, DefaultRankFields, input)
	var violation *ContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "duplicates")
}

func TestDecodeRankedNotAnArray(t *testing.T) {
	_, err := decodeRanked(`{"url": "a"}`, DefaultRankFields, pianoListings())
	var violation *ContractViolationError
	assert.ErrorAs(t, err, &violation)
}

func TestDecodeRankedInvalidJSON(t *testing.T) {
	_, err := decodeRanked(`[{"url": "a",}]`, DefaultRankFields, pianoListings())
	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Raw, `[{"url": "a",}]`)
}

func TestDecodeRankedDescriptionOnlyFields(t *testing.T) {
	input := pianoListings()
	fields := []RankField{FieldDescription, FieldPrice}
	sanitized := `[{"description": "Yamaha digital piano, barely used", "price": 500}]`

	ranked, err := decodeRanked(sanitized, fields, input)
	require.Nil(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "", ranked[0].URL)
	assert.Equal(t, "Yamaha digital piano, barely used", ranked[0].Description)
}

func TestDecodeVerdicts(t *testing.T) {
	sanitized := `[
		{"item_id": "https://m.example.com/1", "reasoning": "Matches the request.", "relevant": 1, "first_message": "Hi! Is this still available?"},
		{"item_id": "https://m.example.com/4", "reasoning": "A guitar is not a piano.", "relevant": 0, "first_message": "Null"}
	]`

	verdicts, err := decodeVerdicts(sanitized, 2)
	require.Nil(t, err)
	require.Len(t, verdicts, 2)
	assert.True(t, verdicts[0].IsRelevant())
	assert.False(t, verdicts[1].IsRelevant())
	assert.Equal(t, NoActionMessage, verdicts[1].FirstMessage)
}

func TestDecodeVerdictsCountMismatch(t *testing.T) {
	sanitized := `[{"item_id": "a", "reasoning": "r", "relevant": 1, "first_message": "m"}]`

	_, err := decodeVerdicts(sanitized, 2)
	var violation *ContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "expected 2 verdicts")
}

func TestDecodeVerdictsMissingField(t *testing.T) {
	sanitized := `[{"item_id": "a", "relevant": 1, "first_message": "m"}]`

	_, err := decodeVerdicts(sanitized, 1)
	var violation *ContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "reasoning")
}

func TestDecodeVerdictsBadRelevantFlag(t *testing.T) {
	sanitized := `[{"item_id": "a", "reasoning": "r", "relevant": 2, "first_message": "m"}]`

	_, err := decodeVerdicts(sanitized, 1)
	var violation *ContractViolationError
	assert.ErrorAs(t, err, &violation)
}

func TestDecodeTurn(t *testing.T) {
	sanitized := `{"role": "assistant", "content": "Would you take 90?", "reasoning": "Anchor below the goal.", "current_offer": 90}`

	turn, err := decodeTurn(sanitized)
	require.Nil(t, err)
	assert.Equal(t, RoleAssistant, turn.Role)
	assert.Equal(t, "Would you take 90?", turn.Content)
	require.NotNil(t, turn.Offer)
	assert.Equal(t, 90.0, *turn.Offer)
}

func TestDecodeTurnNullOffer(t *testing.T) {
	turn, err := decodeTurn(`{"role": "assistant", "content": "What is the condition?", "reasoning": "Learn more first.", "current_offer": null}`)
	require.Nil(t, err)
	assert.Nil(t, turn.Offer)
}

func TestDecodeTurnMissingOffer(t *testing.T) {
	turn, err := decodeTurn(`{"role": "assistant", "content": "Hi!", "reasoning": "Open politely."}`)
	require.Nil(t, err)
	assert.Nil(t, turn.Offer)
}

func TestDecodeTurnNonNumericOffer(t *testing.T) {
	_, err := decodeTurn(`{"role": "assistant", "content": "Hi!", "current_offer": "ninety"}`)
	var violation *ContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "current_offer")
}

func TestDecodeTurnMissingContent(t *testing.T) {
	_, err := decodeTurn(`{"role": "assistant", "reasoning": "r"}`)
	var violation *ContractViolationError
	assert.ErrorAs(t, err, &violation)
}

func TestDecodeTurnNormalizesRole(t *testing.T) {
	turn, err := decodeTurn(`{"content": "Hi!"}`)
	require.Nil(t, err)
	assert.Equal(t, RoleAssistant, turn.Role)
}

func TestDecodeRankedLengthCappedByInput(t *testing.T) {
	input := []market.Listing{{URL: "u1", Description: "d1", Price: 1}}
	sanitized := `[
		{"url": "u1", "description": "d1", "price": 1},
		{"url": "u1", "description": "d1", "price": 1}
	]`
	// Two echoes of one input: the duplicate check fires before the length check
	_, err := decodeRanked(sanitized, DefaultRankFields, input)
	var violation *ContractViolationError
	assert.ErrorAs(t, err, &violation)
}
