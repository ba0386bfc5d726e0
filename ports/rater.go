package ports

import "context"

// RaterUsage is raw token accounting reported by a provider API.
type RaterUsage struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
}

// RaterRequest is one evaluation prompt bound to a specific model and
// sampling temperature.
type RaterRequest struct {
	Model           string
	System          string
	User            string
	Temperature     float64
	MaxOutputTokens int
}

// RaterResponse is the raw outcome of a single rater call. Content is
// loosely-structured text; downstream parsing owns its interpretation.
type RaterResponse struct {
	Content    string
	StopReason string
	Usage      RaterUsage
}

// RaterClient is the capability interface for one external
// text-generation service. The pipeline depends only on this
// interface, never on a specific provider.
type RaterClient interface {
	Submit(ctx context.Context, req RaterRequest) (*RaterResponse, error)
}
