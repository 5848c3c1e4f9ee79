package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	DefaultModel = "gpt-4o-mini"

	baseMaxOutputTokens  int64 = 1024
	limitMaxOutputTokens int64 = 4096
)

// OpenAICompleter calls OpenAI's Responses API with temperature 0.
type OpenAICompleter struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAICompleter(apiKey string, model string, opts ...option.RequestOption) (*OpenAICompleter, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}

	return &OpenAICompleter{
		client: openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  openai.ChatModel(model),
	}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}

	maxOutputTokens := baseMaxOutputTokens
	for {
		resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           c.model,
			Temperature:     openai.Float(0),
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt),
			},
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}
			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		answer := strings.TrimSpace(resp.OutputText())
		if answer == "" {
			return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
		}
		return answer, nil
	}
}
