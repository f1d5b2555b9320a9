package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// LLMClient genera texto a partir de un prompt.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configura HTTPClient. Los ceros toman los defaults.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	System      string
	Temperature float64
	// JSONMode pide response_format json_object; la API rechaza el prompt si no menciona JSON.
	JSONMode   bool
	MaxRetries int
	Timeout    time.Duration
}

// HTTPClient habla con una API chat/completions compatible con OpenAI y reintenta
// 429 y 5xx con backoff lineal.
type HTTPClient struct {
	opts    Options
	client  *http.Client
	logger  *zap.Logger
	backoff time.Duration
}

var tracer = otel.Tracer("bigfive-core/llm")

var errRetryable = errors.New("retryable llm status")

func NewHTTPClient(opts Options, logger *zap.Logger) *HTTPClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		logger:  logger,
		backoff: time.Second,
	}
}

func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.opts.Model))

	body, err := json.Marshal(c.buildRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		out, err := c.do(ctx, body)
		if err == nil {
			span.SetAttributes(attribute.Int("llm.attempts", attempt+1))
			return out, nil
		}
		lastErr = err
		if !errors.Is(err, errRetryable) {
			break
		}
		c.logger.Warn("llm request retry", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return "", lastErr
}

func (c *HTTPClient) buildRequest(prompt string) chatRequest {
	msgs := make([]chatMessage, 0, 2)
	if c.opts.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: c.opts.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})
	req := chatRequest{
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		Messages:    msgs,
	}
	if c.opts.JSONMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return req
}

func (c *HTTPClient) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status=%d", errRetryable, resp.StatusCode)
	case resp.StatusCode >= 400:
		c.logger.Warn("llm error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return "", fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("llm api error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("llm empty response")
	}
	return cr.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
