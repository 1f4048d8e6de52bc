// Package ai is the single integration point to the language-model service.
// Every failure surfaces as ErrGenerationUnavailable so callers can fall back
// to deterministic generation.
package ai

import (
	"context"
	"errors"
	"time"
)

var (
	ErrGenerationUnavailable = errors.New("GENERATION_UNAVAILABLE")

	ErrNotConfigured = errors.New("model service not configured")
	ErrRateLimited   = errors.New("model service rate limit reached")
	ErrTimeout       = errors.New("model call timed out")
	ErrEmptyResponse = errors.New("empty model response")
	ErrExtraction    = errors.New("no JSON object in model response")
)

// Completer performs one synchronous model call.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config fixes the model parameters for every call site.
type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	RateLimit   float64
	RateBurst   int
}

const (
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"

	defaultTimeout = 8 * time.Second
)
