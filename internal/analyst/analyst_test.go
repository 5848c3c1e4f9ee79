package analyst_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"nhmexplorer/internal/analyst"
	"nhmexplorer/internal/occurrence"
	"nhmexplorer/internal/table"
)

type stubCompleter struct {
	prompts []string
	answer  string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)

	return s.answer, s.err
}

func sampleTable() *table.Table {
	return table.FromRecords([]occurrence.Record{
		{
			Fields: []string{"country", "year"},
			Values: map[string]any{"country": "GB", "year": json.Number("1850")},
		},
	})
}

func TestAskEmbedsTableAndQuestion(t *testing.T) {
	stub := &stubCompleter{answer: "One record from GB."}
	chat := analyst.NewTableChat(stub)

	answer, err := chat.Ask(context.Background(), sampleTable(), "  Which countries?  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer != "One record from GB." {
		t.Fatalf("unexpected answer: %q", answer)
	}

	if len(stub.prompts) != 1 {
		t.Fatalf("expected one completion call, got %d", len(stub.prompts))
	}

	prompt := stub.prompts[0]
	for _, want := range []string{
		"You are a data analyst.",
		"Answer ONLY using this table.",
		"| 0 | GB | 1850 |",
		"Question:\nWhich countries?\n",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	stub := &stubCompleter{}
	chat := analyst.NewTableChat(stub)

	_, err := chat.Ask(context.Background(), sampleTable(), " ")
	if !errors.Is(err, analyst.ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}

	if len(stub.prompts) != 0 {
		t.Fatalf("expected no completion call")
	}
}

func TestAskWrapsCompleterError(t *testing.T) {
	boom := errors.New("boom")
	chat := analyst.NewTableChat(&stubCompleter{err: boom})

	if _, err := chat.Ask(context.Background(), sampleTable(), "q"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped completer error, got %v", err)
	}
}

func TestAskReusesAnswerForSameTableAndQuestion(t *testing.T) {
	stub := &stubCompleter{answer: "One record."}
	chat := analyst.NewTableChat(stub)
	ctx := context.Background()

	for range 2 {
		answer, err := chat.Ask(ctx, sampleTable(), "How many?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if answer != "One record." {
			t.Fatalf("unexpected answer: %q", answer)
		}
	}

	if len(stub.prompts) != 1 {
		t.Fatalf("expected one completion call, got %d", len(stub.prompts))
	}

	if _, err := chat.Ask(ctx, sampleTable(), "Which year?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stub.prompts) != 2 {
		t.Fatalf("expected a new completion for a new question, got %d", len(stub.prompts))
	}
}
