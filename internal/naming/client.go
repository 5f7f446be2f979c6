// Package naming provides a semantic name generator backed by an
// OpenAI-compatible chat-completions endpoint. It plugs into the masking
// generator as a mask.NamerFunc; every failure mode falls back to
// deterministic naming upstream, so this client never has to be clever
// about retries.
package naming

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlveil/pkg/mask"
)

const (
	defaultModel       = "gpt-4o-mini"
	completionsPath    = "/chat/completions"
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 1 << 20
)

// Options configure a Client.
type Options struct {
	Endpoint string // base URL, e.g. https://api.openai.com/v1
	Model    string
	APIKey   string
	Logger   *slog.Logger

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to an OpenAI-compatible chat-completions API.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient builds a Client from opts. Endpoint is required.
func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("naming: endpoint is required")
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		model:    model,
		apiKey:   opts.APIKey,
		http:     hc,
		logger:   logger,
	}, nil
}

// Namer adapts the client to the generator's callback contract.
func (c *Client) Namer() mask.NamerFunc {
	return c.Name
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = "You rename SQL identifiers for data masking. " +
	"Reply with exactly one plausible replacement name and nothing else: " +
	"a single lowercase identifier using letters, digits and underscores. " +
	"Never reply with the original name."

// Name requests one synthetic name candidate for the given entity.
func (c *Client) Name(ctx context.Context, role mask.Role, key string, domain mask.Domain) (string, error) {
	prompt := fmt.Sprintf("Domain: %s. Kind: %s. Original name: %s. Replacement:", domain, role, key)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   16,
	})
	if err != nil {
		return "", fmt.Errorf("naming: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("naming: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("naming: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("naming: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("namer endpoint returned error", "status", resp.StatusCode, "body", string(data))
		return "", fmt.Errorf("naming: endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("naming: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("naming: endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("naming: empty response")
	}

	candidate := cleanCandidate(parsed.Choices[0].Message.Content)
	if candidate == "" {
		return "", fmt.Errorf("naming: unusable candidate %q", parsed.Choices[0].Message.Content)
	}
	return candidate, nil
}

// cleanCandidate normalizes a model reply down to a bare identifier.
// Models occasionally wrap replies in quotes, backticks or trailing
// punctuation despite the prompt.
func cleanCandidate(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`\"'.")
	if i := strings.IndexAny(s, " \t\n"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}
