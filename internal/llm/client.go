package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kyleking/askdb/internal/errors"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxTokens          = 1000
	anthropicVersion   = "2023-06-01"
)

// Client talks to one hosted or local model over HTTP
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient validates config and fills in the provider's default model and base URL
func NewClient(config Config) (*Client, error) {
	config.Provider = strings.ToLower(config.Provider)

	switch config.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	case "":
		return nil, errors.New(errors.ErrTypeConfig, "provider is required")
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported provider: %s", config.Provider)
	}

	if config.Model == "" {
		config.Model = DefaultModel(config.Provider)
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL(config.Provider)
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.config.Provider
}

// Model returns the configured model
func (c *Client) Model() string {
	return c.config.Model
}

// GenerateSQL asks the model for a query. Hosted providers without an API key
// report Unavailable without touching the network.
func (c *Client) GenerateSQL(ctx context.Context, req Request) Result {
	if RequiresAPIKey(c.config.Provider) && c.config.APIKey == "" {
		return Unavailable(c.Name(), errors.Newf(errors.ErrTypeProviderUnavailable,
			"no API key configured for %s", c.config.Provider))
	}

	var (
		text string
		err  error
	)

	switch c.config.Provider {
	case ProviderOpenAI:
		text, err = c.completeOpenAI(ctx, req)
	case ProviderAnthropic:
		text, err = c.completeAnthropic(ctx, req)
	case ProviderOllama:
		text, err = c.completeOllama(ctx, req)
	}

	if err != nil {
		return Failed(c.Name(), errors.Wrapf(err, errors.ErrTypeProvider, "%s request failed", c.config.Provider))
	}

	sql := StripCodeFence(text)
	if sql == "" {
		return Failed(c.Name(), errors.Newf(errors.ErrTypeProvider, "%s returned no SQL", c.config.Provider))
	}

	return Success(c.Name(), sql)
}

// OpenAI API structures
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *apiError      `json:"error,omitempty"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) completeOpenAI(ctx context.Context, req Request) (string, error) {
	body := openAIRequest{
		Model: c.config.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserPrompt(req)},
		},
		Temperature: 0,
		MaxTokens:   maxTokens,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.config.APIKey}

	respBody, err := c.post(ctx, "/chat/completions", body, headers)
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("OpenAI API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *apiError          `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) completeAnthropic(ctx context.Context, req Request) (string, error) {
	body := anthropicRequest{
		Model:     c.config.Model,
		MaxTokens: maxTokens,
		System:    SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: UserPrompt(req)},
		},
		Temperature: 0,
	}

	headers := map[string]string{
		"x-api-key":         c.config.APIKey,
		"anthropic-version": anthropicVersion,
	}

	respBody, err := c.post(ctx, "/messages", body, headers)
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("failed to parse Anthropic response: %w", err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("Anthropic API error: %s", response.Error.Message)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no response from Anthropic")
	}

	return sb.String(), nil
}

// Ollama API structures
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) completeOllama(ctx context.Context, req Request) (string, error) {
	body := ollamaRequest{
		Model:  c.config.Model,
		Prompt: UserPrompt(req),
		System: SystemPrompt,
		Stream: false,
	}

	respBody, err := c.post(ctx, "/api/generate", body, nil)
	if err != nil {
		return "", err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	if response.Error != "" {
		return "", fmt.Errorf("Ollama API error: %s", response.Error)
	}

	return response.Response, nil
}

// post sends a JSON body and returns the response body of a 200 reply
func (c *Client) post(ctx context.Context, endpoint string, reqBody any, headers map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
