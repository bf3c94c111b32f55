package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures the chat completion client
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// OpenAI generates apps through the chat completions API
type OpenAI struct {
	client  *openai.Client
	breaker *resilience.Breaker
	config  OpenAIConfig
	logger  *zap.Logger
}

// NewOpenAI creates the OpenAI generator
func NewOpenAI(config OpenAIConfig, logger *zap.Logger) (*OpenAI, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrProviderUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Model == "" {
		config.Model = DefaultOpenAIModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4000
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		breaker: resilience.New("openai", resilience.Settings{
			MaxRequests: 2,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		config: config,
		logger: logger,
	}, nil
}

// Name implements Generator
func (o *OpenAI) Name() string { return ProviderOpenAI }

// Generate implements Generator
func (o *OpenAI) Generate(ctx context.Context, req Request) (*types.GeneratedApp, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt})
	for _, msg := range req.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	text, err := resilience.Execute(o.breaker, func() (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:               o.config.Model,
			Messages:            messages,
			Temperature:         o.config.Temperature,
			MaxCompletionTokens: o.config.MaxTokens,
			ResponseFormat:      &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		})
		if err != nil {
			return "", fmt.Errorf("openai API call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%w: no choices", ErrInvalidResponse)
		}
		o.logger.Debug("openai completion", zap.String("finish_reason", string(resp.Choices[0].FinishReason)))
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return nil, err
	}
	return ParseResponse(text)
}
