package scout

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// questionPrefixes are interrogative openers stripped when deriving a title
// or topic from the user's query.
var questionPrefixes = []string{"what is", "what are", "how to", "how do", "why", "can you"}

// SuggestTitle derives a note title from the query: question prefixes come
// off, the first letter is capitalized, long titles are clipped with an
// ellipsis, and short ones get a "Research: " prefix. Never over 80 chars.
func SuggestTitle(query string) string {
	title := strings.TrimSpace(query)

	lower := strings.ToLower(title)
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			title = strings.TrimSpace(title[len(prefix):])
			break
		}
	}

	if title != "" {
		r, size := utf8.DecodeRuneInString(title)
		title = strings.ToUpper(string(r)) + title[size:]
	}

	if runes := []rune(title); len(runes) > 70 {
		title = string(runes[:67]) + "..."
	}

	if utf8.RuneCountInString(title) < 60 {
		title = "Research: " + title
	}

	return truncate(title, 80)
}

const followupPromptTemplate = `Based on this research interaction, suggest exactly 3 follow-up questions the user might want to ask next.

Original question: %s

Research summary (first 500 chars): %s...

%s

Requirements:
- Generate exactly 3 questions
- Each question should explore a different aspect or go deeper
- Questions should be specific and actionable
- Keep each question under 60 characters
- Format: Output ONLY the 3 questions, one per line, no numbering or bullets

Example output format:
How does this compare to alternatives?
What are the main limitations?
Can you show a practical example?`

// generateFollowups asks the LLM for three contextual follow-up questions.
// The call runs with its own single-message context so a failure here never
// touches the main conversation; on any failure the templated fallback is
// returned instead.
func (o *Orchestrator) generateFollowups(ctx context.Context, query, content string, sources []Source) []string {
	sourceContext := ""
	if len(sources) > 0 {
		titles := make([]string, 0, 3)
		for _, s := range sources[:min(3, len(sources))] {
			titles = append(titles, s.Title)
		}
		sourceContext = "Sources used: " + strings.Join(titles, ", ")
	}

	prompt := fmt.Sprintf(followupPromptTemplate, query, truncate(content, 500), sourceContext)

	resp, err := o.llm.Chat(ctx, []Message{UserMessage(prompt)}, ChatOptions{
		Model:       o.model,
		Temperature: 0.7,
		NumPredict:  200,
	})
	if err != nil {
		o.logger.Warn("failed to generate follow-up questions", "request_id", o.requestID, "error", err)
		return fallbackFollowups(query)
	}

	questions := parseFollowupLines(resp)
	if len(questions) < 3 {
		return fallbackFollowups(query)
	}
	return questions
}

// parseFollowupLines extracts up to 3 well-formed questions: list decoration
// stripped, longer than 10 chars, ending in "?", clipped to 80.
func parseFollowupLines(text string) []string {
	var questions []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		q := strings.TrimSpace(line)
		q = strings.Trim(q, "0123456789.-) ")
		q = strings.TrimSpace(q)
		if q != "" && len(q) > 10 && strings.HasSuffix(q, "?") {
			questions = append(questions, truncate(q, 80))
		}
		if len(questions) >= 3 {
			break
		}
	}
	return questions
}

// fallbackFollowups produces generic follow-ups from the query topic when
// LLM generation fails.
func fallbackFollowups(query string) []string {
	topic := strings.TrimSpace(strings.ReplaceAll(query, "?", ""))

	lower := strings.ToLower(query)
	for _, prefix := range []string{"what is", "what are", "how to", "how do", "why is", "why are"} {
		if strings.HasPrefix(lower, prefix) {
			topic = strings.Trim(strings.TrimSpace(query[len(prefix):]), "?")
			break
		}
	}

	topic = truncate(topic, 30)

	return []string{
		fmt.Sprintf("What are the pros and cons of %s?", topic),
		"Can you show a practical example?",
		"How does this compare to alternatives?",
	}
}
