// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// OpenRouter is a provider for the OpenRouter API.
type OpenRouter struct {
	APIKey     string
	Model      string
	EmbedModel string
	Timeout    time.Duration
}

// OpenRouterOption configures the OpenRouter provider.
type OpenRouterOption func(*OpenRouter)

// WithOpenRouterAPIKey sets the API key.
func WithOpenRouterAPIKey(key string) OpenRouterOption {
	return func(o *OpenRouter) { o.APIKey = key }
}

// WithOpenRouterModel sets the model name.
func WithOpenRouterModel(model string) OpenRouterOption {
	return func(o *OpenRouter) { o.Model = model }
}

// WithOpenRouterEmbedModel sets the embedding model name.
func WithOpenRouterEmbedModel(model string) OpenRouterOption {
	return func(o *OpenRouter) { o.EmbedModel = model }
}

// WithOpenRouterTimeout sets the request timeout.
func WithOpenRouterTimeout(timeout time.Duration) OpenRouterOption {
	return func(o *OpenRouter) { o.Timeout = timeout }
}

// NewOpenRouter creates a new OpenRouter provider.
func NewOpenRouter(opts ...OpenRouterOption) *OpenRouter {
	o := &OpenRouter{
		APIKey:  os.Getenv("OPEN_ROUTER_API_KEY"),
		Model:   "z-ai/glm-4.5-air:free",
		Timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type openRouterRequest struct {
	Model    string              `json:"model"`
	Messages []openRouterMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
}

// Prompt sends a prompt to OpenRouter and returns the response. Empty
// responses are retried because the free tier rate limits silently.
func (o *OpenRouter) Prompt(ctx context.Context, system, user string) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OPEN_ROUTER_API_KEY not set")
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		result, err := o.promptOnce(ctx, system, user)
		if err == nil && result != "" {
			return result, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("empty response")
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}
	return "", fmt.Errorf("openrouter: failed after 3 attempts: %v", lastErr)
}

func (o *OpenRouter) promptOnce(ctx context.Context, system, user string) (string, error) {
	// Many free models reject system prompts, so fold system into the
	// user message.
	combinedUser := user
	if system != "" {
		combinedUser = system + "\n\n" + user
	}

	reqBody := openRouterRequest{
		Model:    o.Model,
		Messages: []openRouterMessage{{Role: "user", Content: combinedUser}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://openrouter.ai/api/v1/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	client := &http.Client{Timeout: o.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openrouter error: %s", string(body))
	}

	var result openRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openrouter: no response choices returned")
	}

	return result.Choices[0].Message.Content, nil
}

type openRouterEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openRouterEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed generates embeddings via OpenRouter's OpenAI-compatible
// /v1/embeddings endpoint.
func (o *OpenRouter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if o.APIKey == "" {
		return nil, fmt.Errorf("OPEN_ROUTER_API_KEY not set")
	}

	model := o.EmbedModel
	if model == "" {
		model = o.Model
	}
	reqBody := openRouterEmbedRequest{Model: model, Input: texts}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://openrouter.ai/api/v1/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	client := &http.Client{Timeout: o.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openrouter embed error: %s", string(body))
	}

	var result openRouterEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	// Responses may arrive out of order; place each by index.
	embeddings := make([][]float32, len(result.Data))
	for _, d := range result.Data {
		if d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}

	return embeddings, nil
}
