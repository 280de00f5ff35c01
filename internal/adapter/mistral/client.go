// Package mistral implements domain.Completer against a Mistral-compatible
// chat-completion endpoint.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nutriscan/internal/domain"
)

const (
	// DefaultBaseURL is the public Mistral API.
	DefaultBaseURL = "https://api.mistral.ai/v1"
	// DefaultModel is used when no model is configured.
	DefaultModel = "mistral-medium"
	// DefaultMaxTokens is the completion token budget per request.
	DefaultMaxTokens = 1000

	maxErrorBody = 4 << 10
)

var _ domain.Completer = (*Client)(nil)

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

// Client calls the chat-completion endpoint.
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		apiKey:    opts.APIKey,
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		client:    opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 60 * time.Second}
	}
	return c
}

// Complete sends a single user message and returns the content of the first
// choice. A reply without content yields domain.ErrEmptyCompletion.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("mistral: api key not configured")
	}

	msg := message{Role: "user", Content: req.Prompt}
	if req.ImageDataURL != "" {
		msg.Content = []contentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: req.ImageDataURL}},
		}
	}

	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []message{msg},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("mistral: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("mistral: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mistral: request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("mistral: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("mistral: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", domain.ErrEmptyCompletion
	}
	content := messageText(out.Choices[0].Message.Content)
	if strings.TrimSpace(content) == "" {
		return "", domain.ErrEmptyCompletion
	}
	return content, nil
}

// messageText accepts either a plain string or a list of text chunks.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
