// Package relay forwards built prompts to the completion provider and
// normalizes the response. Provider failures never propagate past this
// package's callers: every feature carries a deterministic fallback payload.
package relay

import "context"

// Request is a structured prompt for one completion call.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int

	// JSONMode asks the provider for a JSON-object response where the
	// API supports it. The decode fallback chain still applies.
	JSONMode bool
}

// Completer sends a prompt to the completion provider and returns the raw
// text of the first choice.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
