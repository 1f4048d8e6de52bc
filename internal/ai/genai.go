package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	commonhttp "directory-engine/internal/common/http"
)

// GenAICompleter calls the internal GenAI gateway's /api/ai/generate endpoint.
type GenAICompleter struct {
	baseURL     string
	apiKey      string
	temperature float64
	maxTokens   int
	client      *commonhttp.Client
}

type genAIRequest struct {
	System      string  `json:"system"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type genAIResponse struct {
	Text string `json:"text"`
}

func NewGenAICompleter(cfg Config, client *commonhttp.Client) (*GenAICompleter, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if client == nil {
		client = commonhttp.NewClient(commonhttp.Options{})
	}
	return &GenAICompleter{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      client,
	}, nil
}

func (c *GenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(genAIRequest{
		System:      systemPrompt,
		Prompt:      userPrompt,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call genai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("genai status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out genAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode genai response: %w", err)
	}
	return out.Text, nil
}
