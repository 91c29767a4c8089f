package ask

import (
	"context"
	"fmt"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/llm"
	"github.com/hyperjump/kioku/internal/store"
)

// DefaultTopK is the number of retrieved texts embedded in the prompt.
const DefaultTopK = 5

// Asker answers natural-language questions: it encodes the query to a single
// pooled vector, retrieves the nearest records, and asks the chat model to
// summarize them. This flow does not use the multi-vector pipeline.
type Asker struct {
	store   store.Store
	encoder embedding.Encoder
	chat    llm.Client
}

// NewAsker creates an ask flow over the given collaborators.
func NewAsker(s store.Store, encoder embedding.Encoder, chat llm.Client) *Asker {
	return &Asker{store: s, encoder: encoder, chat: chat}
}

// Ask runs the flow and returns the assembled prompt and the model's answer.
// topK <= 0 uses DefaultTopK; language is a two-letter code ("en" default).
// When the memory yields no hits the prompt is still returned with an empty
// answer, letting the caller report the absence of context.
func (a *Asker) Ask(ctx context.Context, query string, topK int, language string) (prompt, answer string, err error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if language == "" {
		language = "en"
	}

	vector, err := a.encoder.EncodeText(ctx, query)
	if err != nil {
		return "", "", fmt.Errorf("encode query: %w", err)
	}
	hits, err := a.store.SearchNearest(ctx, vector, topK)
	if err != nil {
		return "", "", fmt.Errorf("search: %w", err)
	}

	prompt = BuildPrompt(query, hits, topK, language)
	if len(hits) == 0 {
		return prompt, "", nil
	}

	reply, err := a.chat.Complete(ctx, prompt)
	if err != nil {
		return prompt, "", fmt.Errorf("complete: %w", err)
	}
	return prompt, ExtractAnswer(reply), nil
}
