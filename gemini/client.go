package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// BaseURL is the Google AI Studio API base URL
	BaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout for API requests
	DefaultTimeout = 5 * time.Minute

	// MaxFileSize is the maximum inline image size (20MB)
	MaxFileSize = 20 * 1024 * 1024
)

// Client is the Google Gemini API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	debug      bool
	logger     *slog.Logger
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		if parsed.Host == "" {
			return
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithDebug enables debug logging of requests and responses
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new Google Gemini API client
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Caption sends one image with its instruction and returns the generated text.
//
// It makes exactly one request. Failures are *APIError; a cancelled ctx yields ErrAborted.
func (c *Client) Caption(ctx context.Context, req *CaptionRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", &APIError{Message: "image data is empty"}
	}
	if len(req.Data) > MaxFileSize {
		return "", &APIError{Message: fmt.Sprintf("image size %d exceeds maximum %d bytes (20MB)", len(req.Data), MaxFileSize)}
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	apiReq := &GenerateContentRequest{
		Contents: []*Content{
			{
				Role: "user",
				Parts: []*Part{
					{
						InlineData: &InlineData{
							MIMEType: req.MIMEType,
							Data:     base64.StdEncoding.EncodeToString(req.Data),
						},
					},
					{Text: req.Instruction()},
				},
			},
		},
	}
	if req.Thinking {
		apiReq.GenerationConfig = &GenerationConfig{ThinkingConfig: thinkingFor(model)}
	}

	resp, err := c.generateContent(ctx, model, apiReq)
	if err != nil {
		return "", err
	}

	text := resp.FirstText()
	if strings.TrimSpace(text) == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "Empty response from API"}
	}
	return text, nil
}

func thinkingFor(model string) *ThinkingConfig {
	if isGemini3(model) {
		return &ThinkingConfig{ThinkingLevel: "HIGH"}
	}
	dynamic := -1
	return &ThinkingConfig{ThinkingBudget: &dynamic}
}

// generateContent makes an API call to generate content
func (c *Client) generateContent(ctx context.Context, model string, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	apiURL := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.debug {
		// Don't log the body as it contains the base64 image
		c.logger.Debug("gemini request", "url", apiURL, "bytes", len(body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if aborted(ctx, err) {
			return nil, ErrAborted
		}
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if aborted(ctx, err) {
			return nil, ErrAborted
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if c.debug {
		preview := respBody
		if len(preview) > 2000 {
			preview = preview[:2000]
		}
		c.logger.Debug("gemini response", "status", resp.StatusCode, "body", string(preview))
	}

	var result GenerateContentResponse
	parseErr := json.Unmarshal(respBody, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parseErr == nil && result.Error != nil && result.Error.Message != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: result.Error.Message}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	if parseErr != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to parse response: %v", parseErr)}
	}

	if result.Error != nil {
		msg := result.Error.Message
		if msg == "" {
			msg = "API error"
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &result, nil
}

func aborted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// GetAPIKeyHelp returns help text for setting up the API key
func GetAPIKeyHelp() string {
	return `To caption images with Google Gemini you need an API key.

1. Go to https://aistudio.google.com/apikey
2. Sign in with your Google account
3. Click "Create API key"
4. Save it with:

   imgtagger key set

Or set the environment variable (takes precedence):

   export GEMINI_API_KEY="your-api-key"

Or create a .env file with:
   GEMINI_API_KEY=your-api-key`
}
