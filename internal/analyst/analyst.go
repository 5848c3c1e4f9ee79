package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nhmexplorer/internal/llm"
	"nhmexplorer/internal/metrics"
	"nhmexplorer/internal/table"
)

const promptTemplate = `
You are a data analyst.
Answer ONLY using this table.

Table:
%s

Question:
%s
`

var ErrEmptyQuestion = errors.New("question is empty")

// TableChat answers questions about a table with one flat prompt per
// question.
type TableChat struct {
	completer llm.Completer
	cache     *answerCache
	now       func() time.Time
}

// NewTableChat answers through completer. Answers to an identical table
// and question are reused for an hour.
func NewTableChat(completer llm.Completer) *TableChat {
	return &TableChat{
		completer: completer,
		cache:     newAnswerCache(answerCacheMaxEntries),
		now:       time.Now,
	}
}

func BuildPrompt(t *table.Table, question string) string {
	return fmt.Sprintf(promptTemplate, table.Markdown(t), strings.TrimSpace(question))
}

func (c *TableChat) Ask(ctx context.Context, t *table.Table, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	prompt := BuildPrompt(t, question)
	key := promptKey(prompt)

	if answer, ok := c.cache.get(key, c.now()); ok {
		metrics.QuestionsTotal.WithLabelValues(metrics.OutcomeCached).Inc()
		return answer, nil
	}

	answer, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues(metrics.OutcomeError).Inc()

		return "", fmt.Errorf("complete: %w", err)
	}

	metrics.QuestionsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.cache.set(key, answer, c.now())

	return answer, nil
}
