package relay

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparsable is returned when no decode strategy produced valid JSON.
var ErrUnparsable = errors.New("relay: response is not decodable JSON")

// A Strategy derives a candidate JSON document from raw model output.
// It returns false when it has nothing to offer for this input.
type Strategy func(raw string) (string, bool)

// The decode chain, in order. First strategy whose candidate unmarshals
// wins; callers fall back to their feature's fixed default payload when the
// whole chain fails.
var strategies = []Strategy{
	asIs,
	stripCodeFences,
	trimToBrackets,
}

// Decode runs the fallback chain and unmarshals the first parsable
// candidate into v.
func Decode(raw string, v interface{}) error {
	for _, s := range strategies {
		candidate, ok := s(raw)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}
	return ErrUnparsable
}

func asIs(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}

// stripCodeFences removes a leading ```json / ``` fence and a trailing
// fence. Models add these despite JSON-only instructions.
func stripCodeFences(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// trimToBrackets cuts the input down to the outermost JSON value: from the
// first { or [ to the matching last } or ].
func trimToBrackets(raw string) (string, bool) {
	openObj := strings.Index(raw, "{")
	openArr := strings.Index(raw, "[")

	start := openObj
	closer := "}"
	if start == -1 || (openArr != -1 && openArr < start) {
		start = openArr
		closer = "]"
	}
	if start == -1 {
		return "", false
	}

	end := strings.LastIndex(raw, closer)
	if end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
