package eval

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/castsift/castsift/internal/cast"
)

// ErrMalformedResponse is returned when no decodable JSON object can be
// recovered from the model output.
var ErrMalformedResponse = errors.New("no valid JSON object found in response")

// outputPreamble is a framing phrase some models emit before the JSON body.
const outputPreamble = "Here is the output:"

// ParseDecision extracts a structured decision from untrusted model output.
// It tries a direct parse first, then falls back to the substring between
// the first '{' and the last '}'. Model output cannot be forced into clean
// JSON by prompting alone, so the parser has to do the recovery.
func ParseDecision(raw string) (cast.Decision, error) {
	if idx := strings.LastIndex(raw, outputPreamble); idx >= 0 {
		raw = strings.TrimSpace(raw[idx+len(outputPreamble):])
	}

	var d cast.Decision
	if err := json.Unmarshal([]byte(raw), &d); err == nil {
		return d, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return cast.Decision{}, ErrMalformedResponse
	}

	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return cast.Decision{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return d, nil
}
