package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/chatrooms/internal/config"
	"github.com/comigor/chatrooms/internal/logger"
)

// ErrMissingCredential is returned by NewGateway when no API key is configured.
var ErrMissingCredential = errors.New("llm: api key is not configured")

var (
	errNoChoices = errors.New("response has no choices")
	errNoContent = errors.New("first choice has no content")
)

// ErrorKind classifies a failed completion call.
type ErrorKind string

const (
	// KindTransport covers connection, DNS, timeout and cancellation failures.
	KindTransport ErrorKind = "transport"
	// KindUpstream covers non-success statuses and unexpected response bodies.
	KindUpstream ErrorKind = "upstream"
)

// GatewayError is the only error type Complete returns.
type GatewayError struct {
	Kind       ErrorKind
	StatusCode int // zero unless the endpoint answered
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s error: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Gateway performs exactly one chat completion per call against the
// configured model. It never retries and never streams.
type Gateway struct {
	client      Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewGateway binds client to the model settings in cfg. A missing API key is a
// configuration error and is reported here rather than on every call.
func NewGateway(client Client, cfg config.LLMConfig) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is not configured")
	}
	return &Gateway{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// Complete sends messages and returns the first choice's content.
// Any failure is returned as a *GatewayError.
func (g *Gateway) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		Stream:      false,
	})
	if err != nil {
		return "", classify(err)
	}
	logger.L.Debug("LLM response received", "model", g.model, "choices", len(resp.Choices), "elapsed", time.Since(started))

	if len(resp.Choices) == 0 {
		return "", &GatewayError{Kind: KindUpstream, Err: errNoChoices}
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", &GatewayError{Kind: KindUpstream, Err: errNoContent}
	}
	return content, nil
}

func classify(err error) *GatewayError {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &GatewayError{Kind: KindUpstream, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &GatewayError{Kind: KindUpstream, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &GatewayError{Kind: KindUpstream, Err: err}
	}

	return &GatewayError{Kind: KindTransport, Err: err}
}
