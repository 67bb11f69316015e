package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Completer issues one completion request against the AI gateway
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompletionClient talks to an OpenAI-style chat-completions gateway.
// It performs a single non-streaming round trip per request and never
// retries on its own; retry policy belongs to the caller.
type CompletionClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewCompletionClient creates a client configured from the environment
func NewCompletionClient() *CompletionClient {
	baseURL := os.Getenv("AI_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "http://ai-gateway-service:8090"
		log.Printf("WARN: AI_GATEWAY_URL not set, defaulting to %s", baseURL)
	}

	model := os.Getenv("AI_MODEL")
	if model == "" {
		model = "google/gemini-2.5-flash"
	}

	settings := gobreaker.Settings{
		Name:        "ai-gateway",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &CompletionClient{
		baseURL: baseURL,
		apiKey:  os.Getenv("AI_GATEWAY_KEY"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		tracer:  otel.Tracer("completion-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the gateway URL for testing purposes
func (c *CompletionClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Complete sends the system and user prompts to the gateway and returns
// the raw completion text. Non-success statuses map to UpstreamError:
// 429 rate-limited, 402 quota-exhausted, anything else gateway-error.
func (c *CompletionClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ai_gateway.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.model", c.model),
		attribute.Int("ai.prompt_length", len(userPrompt)),
	)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completeInternal(ctx, systemPrompt, userPrompt)
	})

	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return result.(string), nil
}

func (c *CompletionClient) completeInternal(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to reach ai gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return "", &UpstreamError{Code: UpstreamRateLimited, Status: resp.StatusCode}
		case http.StatusPaymentRequired:
			return "", &UpstreamError{Code: UpstreamQuotaExhausted, Status: resp.StatusCode}
		default:
			return "", &UpstreamError{Code: UpstreamGateway, Status: resp.StatusCode}
		}
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", &FormatError{Reason: reasonEmpty}
	}

	return completion.Choices[0].Message.Content, nil
}
