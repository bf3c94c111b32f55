package generator

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

var (
	ErrEmptyPrompt         = errors.New("prompt is required")
	ErrInvalidPrompt       = errors.New("invalid prompt")
	ErrInvalidHistory      = errors.New("invalid conversation history")
	ErrInvalidResponse     = errors.New("invalid response format from model")
	ErrProviderUnavailable = errors.New("generation provider unavailable")
)

// Provider names
const (
	ProviderMock      = "mock"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Request is one generation turn
type Request struct {
	Prompt  string
	History []types.ConversationMessage
}

// Generator turns a prompt into a mini-app
type Generator interface {
	Generate(ctx context.Context, req Request) (*types.GeneratedApp, error)
	Name() string
}

// SystemPrompt instructs remote models
const SystemPrompt = `You are an expert web developer that creates mini-applications based on user requests.

CRITICAL REQUIREMENTS:
1. Generate ONLY self-contained HTML/CSS/JavaScript that works in an iframe
2. Use NO external libraries or CDNs - vanilla JS only
3. All code must be safe and functional
4. Style should be modern and beautiful
5. The app should be fully functional and interactive

RESPONSE FORMAT:
Return a JSON object with exactly these fields:
{
  "title": "App Name",
  "description": "Brief description",
  "htmlContent": "HTML code here",
  "cssContent": "CSS code here",
  "jsContent": "JavaScript code here"
}

SECURITY RULES:
- No external API calls
- No dangerous JavaScript patterns
- No access to parent window
- Self-contained functionality only

Create a beautiful, functional mini-application based on the user's request.`
