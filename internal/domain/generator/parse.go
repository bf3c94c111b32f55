package generator

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

// ParseResponse extracts the app object from model output. The object is
// the text from the first '{' to the last '}', which tolerates prose or code
// fences around it.
func ParseResponse(text string) (*types.GeneratedApp, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, ErrInvalidResponse
	}

	var app types.GeneratedApp
	if err := sonic.UnmarshalString(text[start:end+1], &app); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	required := []struct {
		name  string
		value string
	}{
		{"title", app.Title},
		{"description", app.Description},
		{"htmlContent", app.HTMLContent},
		{"cssContent", app.CSSContent},
		{"jsContent", app.JSContent},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: missing required field: %s", ErrInvalidResponse, f.name)
		}
	}
	return &app, nil
}
