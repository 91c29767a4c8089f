// Package ask composes single-vector search with a chat model to answer
// natural-language questions over a memory.
package ask

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kioku/internal/models"
)

const (
	maxQueryLen   = 150
	maxResults    = 5
	maxHitLen     = 600
	maxFullLen    = 4096
	maxTitleLen   = 80
	answerOpenTag = "<answer>"
	answerEndTag  = "</answer>"
)

// BuildPrompt assembles the summarization prompt from the query and the
// top-K search hits. Hit texts are unwrapped from their payload objects.
func BuildPrompt(query string, hits []models.Hit, topK int, language string) string {
	if topK < 1 {
		topK = 1
	}
	if topK > maxResults {
		topK = maxResults
	}
	if topK > len(hits) {
		topK = len(hits)
	}

	var docs strings.Builder
	var full strings.Builder
	for i := 0; i < topK; i++ {
		sentence := models.ParsePayloadSentence(hits[i].Text)
		if i > 0 {
			docs.WriteString("\n\n")
			full.WriteString("\n")
		}
		fmt.Fprintf(&docs,
			"<doc index=\"%d\">\n<url>memory://%d</url>\n<title>%s</title>\n<score>%v</score>\n<hits>\n<hit index=\"0\" score=\"%v\">\n%s\n</hit>\n</hits>\n</doc>",
			i+1, i+1,
			stripTags(clip(sentence, maxTitleLen)),
			hits[i].Score, hits[i].Score,
			stripTags(clip(sentence, maxHitLen)),
		)
		full.WriteString(sentence)
	}
	docsBlock := docs.String()
	if docsBlock == "" {
		docsBlock = `<doc index="1"><url></url><title></title><hits><hit index="0">(no hits)</hit></hits></doc>`
	}

	return fmt.Sprintf(promptTemplate,
		languageInstruction(language),
		clip(query, maxQueryLen),
		docsBlock,
		stripTags(clip(full.String(), maxFullLen)),
	)
}

// ExtractAnswer returns the content of the <answer> tag when present,
// otherwise the trimmed text.
func ExtractAnswer(text string) string {
	lower := strings.ToLower(text)
	start := strings.Index(lower, answerOpenTag)
	end := strings.Index(lower, answerEndTag)
	if start < 0 || end < 0 || end < start {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[start+len(answerOpenTag) : end])
}

// clip truncates s to max runes, appending an ellipsis when shortened.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

var tagReplacer = strings.NewReplacer(
	"<thinking>", "", "</thinking>", "",
	"<answer>", "", "</answer>", "",
	"<THINKING>", "", "</THINKING>", "",
	"<ANSWER>", "", "</ANSWER>", "",
)

func stripTags(s string) string {
	return tagReplacer.Replace(s)
}

func languageInstruction(code string) string {
	switch code {
	case "ja":
		return "日本語 (Japanese)"
	case "ko":
		return "한국어 (Korean)"
	case "zh":
		return "中文 (Chinese)"
	case "es":
		return "Español (Spanish)"
	case "fr":
		return "Français (French)"
	case "de":
		return "Deutsch (German)"
	case "it":
		return "Italiano (Italian)"
	case "pt":
		return "Português (Portuguese)"
	case "ru":
		return "Русский (Russian)"
	default:
		return "English"
	}
}

const promptTemplate = `You are an excellent AI assistant that summarizes the content of documents found as search results.
Summarize the main points concisely, taking into account their relevance to the user's search query.

# Instructions
- Before responding, please describe your thinking process within the <thinking>...</thinking> tag (keep under 100 words).
- After thinking, write your final summary within the <answer>...</answer> tag.
- The summary should be objective and grounded in the documents.
- Focus on information related to <user_query>, especially considering the content in <docs>.
- Limit the final summary to 140 words or less.
- Answer in %s in <answer> tag. << IMPORTANT!!

# Input

<user_query>
%s
</user_query>

<docs>
%s
</docs>

<full_document>
%s
</full_document>`
