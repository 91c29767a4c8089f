// Package llm provides the chat-completion collaborator for the ask flow.
package llm

import "context"

// Client completes a prompt with a language model.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
