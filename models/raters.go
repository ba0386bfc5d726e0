package models

import (
	"fmt"
	"strings"
)

// Provider identifies which external service hosts a rater.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
)

// RaterConfig describes one evaluation rater: API identity, context
// window, pricing, temperature schedule, and the env var holding its key.
//
// Temperature strategy: trials vary around each rater's evaluation
// temperature center rather than absolute zero, so repeated trials
// expose within-rater noise instead of a single deterministic sample.
type RaterConfig struct {
	Provider           Provider
	APIModelID         string
	DisplayName        string
	ContextWindow      int
	InputCostPerMTok   float64
	OutputCostPerMTok  float64
	EnvVar             string
	TemperatureCenter  float64
	TemperatureOffsets []float64
	MaxOutputTokens    int

	// Long-context pricing: once input exceeds the threshold, ALL tokens
	// are billed at the premium rates. Zero threshold disables it.
	LongContextThreshold         int
	LongContextInputCostPerMTok  float64
	LongContextOutputCostPerMTok float64
}

// Temperatures returns the per-trial sampling temperatures.
func (r RaterConfig) Temperatures() []float64 {
	temps := make([]float64, len(r.TemperatureOffsets))
	for i, off := range r.TemperatureOffsets {
		temps[i] = round2(r.TemperatureCenter + off)
	}
	return temps
}

// TemperatureForTrial returns the temperature for a 1-based trial number.
func (r RaterConfig) TemperatureForTrial(trial int) float64 {
	temps := r.Temperatures()
	if len(temps) == 0 {
		return r.TemperatureCenter
	}
	idx := (trial - 1) % len(temps)
	if idx < 0 {
		idx += len(temps)
	}
	return temps[idx]
}

// Cost computes the USD cost of a call given token counts, applying
// long-context rates to the entire call when the input crosses the
// threshold.
func (r RaterConfig) Cost(inputTokens, outputTokens int) float64 {
	inRate, outRate := r.InputCostPerMTok, r.OutputCostPerMTok
	if r.LongContextThreshold > 0 && inputTokens > r.LongContextThreshold {
		inRate = r.LongContextInputCostPerMTok
		outRate = r.LongContextOutputCostPerMTok
	}
	return float64(inputTokens)/1e6*inRate + float64(outputTokens)/1e6*outRate
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

var defaultOffsets = []float64{-0.2, -0.1, 0.0, -0.1, -0.2}

// Rater registry. Offsets stay below center so every trial remains in a
// regime the provider treats as near-deterministic.
var (
	Claude = RaterConfig{
		Provider:                     ProviderAnthropic,
		APIModelID:                   "claude-sonnet-4-6",
		DisplayName:                  "Claude Sonnet 4.6",
		ContextWindow:                1_000_000,
		InputCostPerMTok:             3.0,
		OutputCostPerMTok:            15.0,
		EnvVar:                       "ANTHROPIC_API_KEY",
		TemperatureCenter:            0.6,
		TemperatureOffsets:           defaultOffsets,
		MaxOutputTokens:              16384,
		LongContextThreshold:         200_000,
		LongContextInputCostPerMTok:  6.0,
		LongContextOutputCostPerMTok: 22.5,
	}

	GPT = RaterConfig{
		Provider:           ProviderOpenAI,
		APIModelID:         "gpt-5.2",
		DisplayName:        "GPT-5.2",
		ContextWindow:      400_000,
		InputCostPerMTok:   1.75,
		OutputCostPerMTok:  14.0,
		EnvVar:             "OPENAI_API_KEY",
		TemperatureCenter:  0.5,
		TemperatureOffsets: defaultOffsets,
		MaxOutputTokens:    16384,
	}

	Gemini = RaterConfig{
		Provider:           ProviderGoogle,
		APIModelID:         "gemini-2.5-pro",
		DisplayName:        "Gemini 2.5 Pro",
		ContextWindow:      1_000_000,
		InputCostPerMTok:   2.0,
		OutputCostPerMTok:  12.0,
		EnvVar:             "GEMINI_API_KEY",
		TemperatureCenter:  0.5,
		TemperatureOffsets: defaultOffsets,
		MaxOutputTokens:    16384,
	}
)

// AllRaters lists every registered rater in stable order.
var AllRaters = []RaterConfig{Claude, GPT, Gemini}

// RaterByName looks up a rater by display name or API model id.
func RaterByName(name string) (RaterConfig, error) {
	lower := strings.ToLower(name)
	for _, r := range AllRaters {
		if lower == strings.ToLower(r.DisplayName) || lower == strings.ToLower(r.APIModelID) {
			return r, nil
		}
	}
	return RaterConfig{}, fmt.Errorf("unknown rater %q", name)
}
