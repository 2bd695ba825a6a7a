package agent

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned by ExtractJSON when the text contains no bracket
// pair to isolate.
var ErrNoJSON = errors.New("no JSON value found in response")

// ExtractJSON isolates a JSON array or object from noisy model output.
// Models routinely prepend commentary ("Here are the top listings:") or wrap
// the answer in prose; this locates the span bounded by the first '['/'{'
// and the last ']'/'}' and returns it. Text that already starts and ends
// with the brackets is returned as-is.
//
// This is syntactic isolation only. Unbalanced brackets inside the span are
// not repaired; the subsequent JSON parse reports those.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrNoJSON
	}

	open, closing := delimitersFor(trimmed)
	if open == 0 {
		return "", ErrNoJSON
	}

	if strings.HasPrefix(trimmed, string(open)) && strings.HasSuffix(trimmed, string(closing)) {
		return trimmed, nil
	}

	start := strings.IndexByte(trimmed, open)
	end := strings.LastIndexByte(trimmed, closing)
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return trimmed[start : end+1], nil
}

// delimitersFor picks array or object delimiters based on whichever opening
// bracket appears first. Returns zero bytes when neither is present.
func delimitersFor(text string) (open, closing byte) {
	arr := strings.IndexByte(text, '[')
	obj := strings.IndexByte(text, '{')
	switch {
	case arr == -1 && obj == -1:
		return 0, 0
	case obj == -1 || (arr != -1 && arr < obj):
		return '[', ']'
	default:
		return '{', '}'
	}
}

// isNullResponse reports whether the model answered a bare null, which the
// ranking stage treats as a legitimate "no matches" result.
func isNullResponse(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "null")
}
