package raters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"panelscore/ports"
)

// GoogleClient calls the Gemini generateContent API. It requests a JSON
// response MIME type, which reduces (but does not eliminate) markdown
// fencing in the output.
type GoogleClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewGoogleClient(apiKey string) *GoogleClient {
	return &GoogleClient{
		APIKey:  apiKey,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *GoogleClient) Submit(ctx context.Context, req ports.RaterRequest) (*ports.RaterResponse, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Parts []part `json:"parts"`
	}
	body := struct {
		SystemInstruction *content  `json:"system_instruction,omitempty"`
		Contents          []content `json:"contents"`
		GenerationConfig  struct {
			Temperature      float64 `json:"temperature"`
			MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
			ResponseMimeType string  `json:"responseMimeType"`
		} `json:"generationConfig"`
	}{
		Contents: []content{{Parts: []part{{Text: req.User}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	body.GenerationConfig.Temperature = req.Temperature
	body.GenerationConfig.MaxOutputTokens = req.MaxOutputTokens
	body.GenerationConfig.ResponseMimeType = "application/json"

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, req.Model, c.APIKey)
	raw, err := postJSON(ctx, c.HTTP, url, body, nil)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []part `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("google: decode response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google: no candidates in response")
	}

	text := ""
	for _, p := range resp.Candidates[0].Content.Parts {
		text += p.Text
	}

	return &ports.RaterResponse{
		Content:    text,
		StopReason: resp.Candidates[0].FinishReason,
		Usage: ports.RaterUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			Model:        req.Model,
		},
	}, nil
}
