package generator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

const (
	anthropicAPIVersion   = "2023-06-01"
	anthropicBaseURL      = "https://api.anthropic.com"
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
)

// AnthropicConfig configures the Messages API client
type AnthropicConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Anthropic generates apps with Claude through the Messages API
type Anthropic struct {
	client  *resty.Client
	breaker *resilience.Breaker
	config  AnthropicConfig
	logger  *zap.Logger
}

// retryLogger adapts zap to retryablehttp.LeveledLogger
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }

// NewAnthropic creates the Claude generator
func NewAnthropic(config AnthropicConfig, logger *zap.Logger) (*Anthropic, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrProviderUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Model == "" {
		config.Model = DefaultAnthropicModel
	}
	if config.BaseURL == "" {
		config.BaseURL = anthropicBaseURL
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4000
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RetryWaitMin <= 0 {
		config.RetryWaitMin = time.Second
	}
	if config.RetryWaitMax <= 0 {
		config.RetryWaitMax = 30 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.RetryMax
	retryClient.RetryWaitMin = config.RetryWaitMin
	retryClient.RetryWaitMax = config.RetryWaitMax
	retryClient.Logger = retryLogger{s: logger.Named("anthropic").Sugar()}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetHeader("x-api-key", config.APIKey).
		SetHeader("anthropic-version", anthropicAPIVersion).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "AppFeed/1.0")
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal
	tracing.InstrumentClient(client)

	breaker := resilience.New("anthropic", resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Anthropic{client: client, breaker: breaker, config: config, logger: logger}, nil
}

// Name implements Generator
func (a *Anthropic) Name() string { return ProviderAnthropic }

// Generate implements Generator
func (a *Anthropic) Generate(ctx context.Context, req Request) (*types.GeneratedApp, error) {
	body := anthropicRequest{
		Model:       a.config.Model,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
		System:      SystemPrompt,
		Messages:    make([]anthropicMessage, 0, len(req.History)+1),
	}
	for _, msg := range req.History {
		body.Messages = append(body.Messages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}
	body.Messages = append(body.Messages, anthropicMessage{Role: "user", Content: req.Prompt})

	text, err := resilience.Execute(a.breaker, func() (string, error) {
		var out anthropicResponse
		var apiErr anthropicError
		resp, err := a.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			SetError(&apiErr).
			Post("/v1/messages")
		if err != nil {
			return "", fmt.Errorf("anthropic request failed: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			msg := apiErr.Error.Message
			if msg == "" {
				msg = resp.Status()
			}
			return "", fmt.Errorf("anthropic API error (%d): %s", resp.StatusCode(), msg)
		}
		for _, block := range out.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", fmt.Errorf("%w: no text content", ErrInvalidResponse)
	})
	if err != nil {
		return nil, err
	}
	return ParseResponse(text)
}
