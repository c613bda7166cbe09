// Package openai writes short plain-language commentary on index results.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

var errEmptyResponse = errors.New("no response from OpenAI")

const systemPrompt = `You explain a hypothetical crypto index to a chat audience.
You receive a text summary of a weighted composite index of crypto assets, a fixed-rate
baseline it is compared to, and performance statistics.

Write at most five short sentences:
- say whether the index beat or trailed the fixed-rate baseline and by how much
- mention the largest drawdown and what it means for someone holding the index
- mention any assets that were left out for lack of data

Plain text only. No investment advice, no price predictions, no markdown.`

// Commentator describes index results with a chat completion model.
type Commentator struct {
	cli   oa.Client
	model string
}

// NewCommentator creates a commentator. Extra options are passed to the
// client, e.g. option.WithBaseURL for a proxy.
func NewCommentator(apiKey, model string, opts ...option.RequestOption) *Commentator {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: model}
}

// Describe returns commentary for summary, the caption of a computed index.
func (c *Commentator) Describe(ctx context.Context, summary string) (string, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New("nothing to describe")
	}
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage("Index summary:\n" + summary),
		},
		MaxTokens: oa.Int(400), // keep replies chat sized
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", errEmptyResponse
	}
	return out, nil
}
