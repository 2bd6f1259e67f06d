// Package llm produces answers from a prompt with a single model call.
package llm

import "context"

// Generator makes one generation attempt per call. Callers do not retry.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}
