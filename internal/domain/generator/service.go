package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/safety"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
)

// Analyzer scores generated code
type Analyzer interface {
	Analyze(ctx context.Context, c safety.Content) (*safety.Report, error)
}

// Recorder receives generation metrics
type Recorder interface {
	RecordGeneration(provider, status string, duration time.Duration)
}

// Result is what the create page receives for one turn
type Result struct {
	App     *types.GeneratedApp `json:"app"`
	Message string              `json:"message"`
	Safety  *safety.Report      `json:"safety,omitempty"`
}

// New builds the generator selected by cfg
func New(cfg config.GeneratorConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case "", ProviderMock:
		return NewMock(), nil
	case ProviderAnthropic:
		return NewAnthropic(AnthropicConfig{
			APIKey:      cfg.AnthropicKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout.Std(),
			RetryMax:    3,
		}, logger)
	case ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:      cfg.OpenAIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout.Std(),
		}, logger)
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// Service validates generation requests and scores the results
type Service struct {
	generator Generator
	analyzer  Analyzer
	metrics   Recorder
	logger    *zap.Logger
}

// NewService creates a generation service. analyzer may be nil.
func NewService(gen Generator, analyzer Analyzer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{generator: gen, analyzer: analyzer, logger: logger}
}

// SetRecorder attaches the metrics sink
func (s *Service) SetRecorder(r Recorder) { s.metrics = r }

// Provider returns the active provider name
func (s *Service) Provider() string { return s.generator.Name() }

// Validate checks a request before it reaches a provider
func Validate(req Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if err := utils.ValidatePrompt(req.Prompt); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrompt, err)
	}
	if len(req.History) > utils.MaxHistorySize {
		return fmt.Errorf("%w: at most %d messages", ErrInvalidHistory, utils.MaxHistorySize)
	}
	for i, msg := range req.History {
		if msg.Role != "user" && msg.Role != "assistant" {
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidHistory, i, msg.Role)
		}
		if len(msg.Content) > utils.MaxPromptSize {
			return fmt.Errorf("%w: message %d is too long", ErrInvalidHistory, i)
		}
	}
	return nil
}

// Generate runs one turn of the create-page chat
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	app, err := s.generator.Generate(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = "cancelled"
		}
	}
	if s.metrics != nil {
		s.metrics.RecordGeneration(s.generator.Name(), status, time.Since(start))
	}
	if err != nil {
		s.logger.Error("generation failed",
			zap.String("provider", s.generator.Name()),
			zap.Error(err))
		return nil, err
	}

	result := &Result{
		App:     app,
		Message: fmt.Sprintf("I've created a %s for you! %s", app.Title, app.Description),
	}

	if s.analyzer != nil {
		report, err := s.analyzer.Analyze(ctx, safety.Content{
			HTML: app.HTMLContent,
			CSS:  app.CSSContent,
			JS:   app.JSContent,
		})
		if err != nil {
			s.logger.Warn("safety analysis of generated app failed", zap.Error(err))
		} else {
			result.Safety = report
		}
	}

	s.logger.Info("app generated",
		zap.String("provider", s.generator.Name()),
		zap.String("title", app.Title),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}
