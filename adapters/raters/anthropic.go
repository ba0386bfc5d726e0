package raters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"panelscore/ports"
)

// longContextBeta enables the 1M-token context window. Long-context
// pricing applies automatically once input exceeds 200K tokens.
const longContextBeta = "context-1m-2025-08-07"

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		APIKey:  apiKey,
		BaseURL: "https://api.anthropic.com/v1",
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *AnthropicClient) Submit(ctx context.Context, req ports.RaterRequest) (*ports.RaterResponse, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	body := struct {
		Model       string    `json:"model"`
		MaxTokens   int       `json:"max_tokens"`
		Temperature float64   `json:"temperature"`
		System      string    `json:"system,omitempty"`
		Messages    []message `json:"messages"`
	}{
		Model:       req.Model,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.User}},
	}

	raw, err := postJSON(ctx, c.HTTP, c.BaseURL+"/messages", body, map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
		"anthropic-beta":    longContextBeta,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var resp struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &ports.RaterResponse{
		Content:    text,
		StopReason: resp.StopReason,
		Usage: ports.RaterUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			Model:        resp.Model,
		},
	}, nil
}
