package llm

import (
	"context"
)

// Completer answers a single flat prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
