// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAI calls the OpenAI chat completions endpoint.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI returns an OpenAI completer. An empty baseURL uses the public
// endpoint. SDK-level retries are disabled: rate-limit handling belongs to
// the caller.
func NewOpenAI(apiKey, baseURL string, client *http.Client) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if client != nil {
		opts = append(opts, option.WithHTTPClient(client))
	}
	return &OpenAI{client: openai.NewClient(opts...)}
}

// Complete sends req.Prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &APIError{
				Provider:   "openai",
				StatusCode: apiErr.StatusCode,
				Type:       apiErr.Type,
				Message:    apiErr.Message,
			}
		}
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
