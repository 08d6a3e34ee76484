package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/okian/entalk/internal/domain/model"
)

// Default client configuration constants.
const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultModel          = "gpt-3.5-turbo"
	defaultTemperature    = 0.8
	defaultMaxTokens      = 1000
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultHTTPTimeout    = 30 * time.Second
	maxErrorBody          = 512
)

const systemPrompt = "You are a helpful assistant that generates engaging conversation questions."

// Option applies a configuration option to the OpenAI client.
type Option func(*OpenAI)

// WithBaseURL points the client at any OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *OpenAI) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithModel sets the chat model.
func WithModel(name string) Option {
	return func(c *OpenAI) {
		if name != "" {
			c.model = name
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *OpenAI) {
		if t >= 0 {
			c.temperature = t
		}
	}
}

// WithMaxRetries bounds attempts on HTTP 429.
func WithMaxRetries(n int) Option {
	return func(c *OpenAI) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialBackoff sets the first 429 backoff; later ones double.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *OpenAI) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenAI) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// OpenAI talks to a chat/completions endpoint.
type OpenAI struct {
	apiKey         string
	baseURL        string
	model          string
	temperature    float64
	maxRetries     int
	initialBackoff time.Duration
	httpClient     *http.Client
}

// NewOpenAI creates a client for the given API key.
func NewOpenAI(apiKey string, opts ...Option) *OpenAI {
	c := &OpenAI{
		apiKey:         apiKey,
		baseURL:        defaultBaseURL,
		model:          defaultModel,
		temperature:    defaultTemperature,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		httpClient:     &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Generator.
func (*OpenAI) Name() string { return BackendOpenAI }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator. Results are truncated to req.Count; fewer
// drafts may come back when the model under-delivers.
func (c *OpenAI) Generate(ctx context.Context, req Request) ([]model.Draft, error) {
	if req.Count <= 0 {
		return nil, nil
	}
	req = normalize(req)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: c.temperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return nil, c.fail(fmt.Errorf("marshaling request: %w", err))
	}

	content, err := c.complete(ctx, body)
	if err != nil {
		return nil, c.fail(err)
	}

	drafts := parseDrafts(content, req)
	if len(drafts) == 0 {
		return nil, c.fail(ErrEmptyResponse)
	}
	return drafts, nil
}

func (c *OpenAI) fail(err error) error {
	return &Error{Backend: BackendOpenAI, Err: err}
}

// complete retries on 429 with exponential backoff; other failures return at once.
func (c *OpenAI) complete(ctx context.Context, body []byte) (string, error) {
	var lastErr error
	for attempt := range c.maxRetries {
		content, err := c.doChat(ctx, body)
		if err == nil {
			return content, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return "", err
		}

		lastErr = err
		if attempt < c.maxRetries-1 {
			backoff := time.Duration(float64(c.initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *OpenAI) doChat(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	kind := "engaging"
	if req.Novelty {
		kind = "unusual, creative, and thought-provoking"
	}
	fmt.Fprintf(&b, "Generate %d %s conversation questions", req.Count, kind)
	if topic := strings.TrimSpace(req.Topic); topic != "" {
		fmt.Fprintf(&b, " about %s", topic)
	}
	b.WriteString(" for English language practice.\n")
	if req.Novelty {
		b.WriteString("They should be unique, unexpected questions that make people think differently.\n")
	}
	b.WriteString("Spread them across these categories:\n")
	for _, c := range req.Categories {
		fmt.Fprintf(&b, "- %s (%s)\n", c, c.Description())
	}
	b.WriteString("and these deck phases:\n")
	for _, p := range req.Phases {
		fmt.Fprintf(&b, "- %s (%s)\n", p, p.Description())
	}
	b.WriteString("Make the questions creative, thought-provoking, and suitable for adult English learners.\n")
	b.WriteString(`Return only JSON of the form {"questions":[{"text":"...","category":"...","phase":"..."}]}.`)
	return b.String()
}
