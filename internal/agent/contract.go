package agent

import (
	"encoding/json"

	"github.com/vesal/haggler/internal/market"
)

// RankField names a listing field the ranking stage asks the model to echo
// back. The active field set is deployment configuration; see
// DefaultRankFields.
type RankField string

const (
	FieldURL         RankField = "url"
	FieldDescription RankField = "description"
	FieldPrice       RankField = "price"
	FieldImage       RankField = "image"
)

// DefaultRankFields is the field set used unless configured otherwise.
var DefaultRankFields = []RankField{FieldURL, FieldDescription, FieldPrice}

// RankedListing is one element of the model's ordered ranking answer. Only
// the configured fields are populated; the rank is the position in the
// returned slice.
type RankedListing struct {
	URL         string  `json:"url,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	ImageURL    string  `json:"image,omitempty"`
}

// Verdict is the validation stage's decision for a single listing.
type Verdict struct {
	ItemID       string `json:"item_id"`
	Reasoning    string `json:"reasoning"`
	Relevant     int    `json:"relevant"`
	FirstMessage string `json:"first_message"`
}

// NoActionMessage is the sentinel first message for irrelevant items.
const NoActionMessage = "Null"

// IsRelevant reports whether the model judged the listing relevant.
func (v Verdict) IsRelevant() bool {
	return v.Relevant == 1
}

// parseArray establishes that the sanitized text is valid JSON and is an
// array (or null, which yields no elements). An invalid-JSON failure is a
// MalformedResponseError; valid JSON of the wrong shape is a
// ContractViolationError, like every later shape check.
func parseArray(sanitized string) ([]json.RawMessage, error) {
	var v any
	if err := json.Unmarshal([]byte(sanitized), &v); err != nil {
		return nil, &MalformedResponseError{Raw: sanitized, Err: err}
	}
	if v == nil {
		return nil, nil
	}
	if _, ok := v.([]any); !ok {
		return nil, contractViolationf(sanitized, "expected a JSON array")
	}
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(sanitized), &elements); err != nil {
		return nil, &MalformedResponseError{Raw: sanitized, Err: err}
	}
	return elements, nil
}

// parseObject is parseArray's counterpart for single-object responses.
func parseObject(sanitized string) (map[string]json.RawMessage, error) {
	var v any
	if err := json.Unmarshal([]byte(sanitized), &v); err != nil {
		return nil, &MalformedResponseError{Raw: sanitized, Err: err}
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, contractViolationf(sanitized, "expected a JSON object")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(sanitized), &obj); err != nil {
		return nil, &MalformedResponseError{Raw: sanitized, Err: err}
	}
	return obj, nil
}

// decodeRanked maps the sanitized ranking response onto []RankedListing and
// checks the ranking contract: every element carries every configured
// field, and every element corresponds to exactly one input listing.
// A JSON null or empty array is a valid empty result.
func decodeRanked(sanitized string, fields []RankField, input []market.Listing) ([]RankedListing, error) {
	elements, err := parseArray(sanitized)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return []RankedListing{}, nil
	}

	// Identifier sets for the hallucination and duplicate checks
	inputURLs := make(map[string]bool, len(input))
	inputDescriptions := make(map[string]bool, len(input))
	for _, l := range input {
		inputURLs[l.URL] = true
		inputDescriptions[l.Description] = true
	}

	required := make(map[RankField]bool, len(fields))
	for _, f := range fields {
		required[f] = true
	}

	seen := make(map[string]bool, len(elements))
	ranked := make([]RankedListing, 0, len(elements))
	for i, raw := range elements {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, contractViolationf(sanitized, "element %d is not an object", i)
		}

		var rl RankedListing
		for f := range required {
			val, ok := obj[string(f)]
			if !ok {
				return nil, contractViolationf(sanitized, "element %d is missing required field %q", i, f)
			}
			var err error
			switch f {
			case FieldURL:
				err = json.Unmarshal(val, &rl.URL)
			case FieldDescription:
				err = json.Unmarshal(val, &rl.Description)
			case FieldPrice:
				err = json.Unmarshal(val, &rl.Price)
			case FieldImage:
				err = json.Unmarshal(val, &rl.ImageURL)
			}
			if err != nil {
				return nil, contractViolationf(sanitized, "element %d has a malformed %q field", i, f)
			}
		}

		// The identifying field must be drawn from the input set, once.
		var id string
		switch {
		case required[FieldURL]:
			id = rl.URL
			if !inputURLs[id] {
				return nil, contractViolationf(sanitized, "element %d refers to unknown listing url %q", i, id)
			}
		case required[FieldDescription]:
			id = rl.Description
			if !inputDescriptions[id] {
				return nil, contractViolationf(sanitized, "element %d refers to unknown listing %q", i, id)
			}
		}
		if id != "" {
			if seen[id] {
				return nil, contractViolationf(sanitized, "element %d duplicates listing %q", i, id)
			}
			seen[id] = true
		}

		ranked = append(ranked, rl)
	}

	if len(ranked) > len(input) {
		return nil, contractViolationf(sanitized, "model returned %d listings for %d inputs", len(ranked), len(input))
	}
	return ranked, nil
}

type verdictWire struct {
	ItemID       *string  `json:"item_id"`
	Reasoning    *string  `json:"reasoning"`
	Relevant     *float64 `json:"relevant"`
	FirstMessage *string  `json:"first_message"`
}

// decodeVerdicts maps the sanitized validation response onto []Verdict and
// requires exactly one verdict per input listing, in input order.
func decodeVerdicts(sanitized string, inputCount int) ([]Verdict, error) {
	elements, err := parseArray(sanitized)
	if err != nil {
		return nil, err
	}
	if len(elements) != inputCount {
		return nil, contractViolationf(sanitized, "expected %d verdicts, model returned %d", inputCount, len(elements))
	}

	verdicts := make([]Verdict, 0, len(elements))
	for i, raw := range elements {
		var w verdictWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, contractViolationf(sanitized, "verdict %d has a malformed field: %v", i, err)
		}
		if w.ItemID == nil {
			return nil, contractViolationf(sanitized, "verdict %d is missing item_id", i)
		}
		if w.Reasoning == nil {
			return nil, contractViolationf(sanitized, "verdict %d is missing reasoning", i)
		}
		if w.Relevant == nil {
			return nil, contractViolationf(sanitized, "verdict %d is missing relevant flag", i)
		}
		if *w.Relevant != 0 && *w.Relevant != 1 {
			return nil, contractViolationf(sanitized, "verdict %d has relevant flag %g, want 0 or 1", i, *w.Relevant)
		}
		if w.FirstMessage == nil {
			return nil, contractViolationf(sanitized, "verdict %d is missing first_message", i)
		}

		verdicts = append(verdicts, Verdict{
			ItemID:       *w.ItemID,
			Reasoning:    *w.Reasoning,
			Relevant:     int(*w.Relevant),
			FirstMessage: *w.FirstMessage,
		})
	}
	return verdicts, nil
}

type turnWire struct {
	Role      string          `json:"role"`
	Content   *string         `json:"content"`
	Reasoning string          `json:"reasoning"`
	Offer     json.RawMessage `json:"current_offer"`
}

// decodeTurn maps the sanitized negotiation response onto a Turn. The offer
// is optional; JSON null means no offer yet, anything non-numeric is a
// contract violation. The role is always normalized to the assistant side.
func decodeTurn(sanitized string) (Turn, error) {
	if _, err := parseObject(sanitized); err != nil {
		return Turn{}, err
	}
	var w turnWire
	if err := json.Unmarshal([]byte(sanitized), &w); err != nil {
		return Turn{}, contractViolationf(sanitized, "turn has a malformed field: %v", err)
	}
	if w.Content == nil || *w.Content == "" {
		return Turn{}, contractViolationf(sanitized, "turn is missing message content")
	}

	turn := Turn{
		Role:      RoleAssistant,
		Content:   *w.Content,
		Reasoning: w.Reasoning,
	}

	if len(w.Offer) > 0 && string(w.Offer) != "null" {
		var offer float64
		if err := json.Unmarshal(w.Offer, &offer); err != nil {
			return Turn{}, contractViolationf(sanitized, "current_offer is not a number: %s", w.Offer)
		}
		turn.Offer = &offer
	}
	return turn, nil
}
