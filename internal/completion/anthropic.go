// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultAnthropicURL = "https://api.anthropic.com/v1/messages"

// Anthropic calls the Claude Messages API.
type Anthropic struct {
	APIKey string
	// BaseURL overrides the messages endpoint (tests, proxies).
	BaseURL string
	Client  *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends req.Prompt as a single user message and concatenates the
// text blocks of the reply.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	bodyBytes, err := json.Marshal(anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxOutputTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := a.BaseURL
	if endpoint == "" {
		endpoint = defaultAnthropicURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: string(body)}
		var eb anthropicErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error.Type != "" {
			apiErr.Type = eb.Error.Type
			apiErr.Message = eb.Error.Message
		}
		return "", apiErr
	}

	var cResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var sb strings.Builder
	found := false
	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		sb.WriteString(block.Text)
		found = true
	}
	if !found {
		return "", fmt.Errorf("no text content in Claude API response")
	}
	return strings.TrimSpace(sb.String()), nil
}
