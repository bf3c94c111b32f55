package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/safety"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox/runtime"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

const validReply = `Here you go:
{"title":"Counter","description":"Counts clicks","htmlContent":"<button id=\"b\">0</button>","cssContent":"button{}","jsContent":"let n=0;"}
Enjoy!`

func TestMockTemplates(t *testing.T) {
	tests := []struct {
		prompt string
		title  string
	}{
		{"Make me a tip calculator", "Smart Tip Calculator"},
		{"CALCULATOR please", "Smart Tip Calculator"},
		{"help me split the tip", "Smart Tip Calculator"},
		{"a todo list", "Quick Todo List"},
		{"inspirational quote machine", "Random Quote Generator"},
		{"pomodoro timer", "Simple Timer"},
		{"a weather widget", "Custom App"},
	}

	m := NewMock()
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			app, err := m.Generate(context.Background(), Request{Prompt: tt.prompt})
			require.NoError(t, err)
			assert.Equal(t, tt.title, app.Title)
			assert.NotEmpty(t, app.HTMLContent)
			assert.NotEmpty(t, app.CSSContent)
			assert.NotEmpty(t, app.JSContent)
		})
	}
}

func TestMockCustomAppEscapesPrompt(t *testing.T) {
	prompt := `<img src=x onerror=alert(1)> '; alert("x"); '`
	app, err := NewMock().Generate(context.Background(), Request{Prompt: prompt})
	require.NoError(t, err)

	assert.Contains(t, app.HTMLContent, "&lt;img src=x onerror=alert(1)&gt;")
	assert.NotContains(t, app.HTMLContent, "<img")
	assert.Contains(t, app.JSContent, `alert(\"x\")`)
	assert.NotContains(t, app.JSContent, `alert("x")`)
}

func TestMockTemplatesPassSafety(t *testing.T) {
	pool, err := runtime.NewPool(runtime.DefaultConfig(), 1)
	require.NoError(t, err)
	defer pool.Close()
	analyzer := safety.NewAnalyzer(pool, nil)

	for _, prompt := range []string{"tip", "todo", "quote", "timer", "anything else"} {
		app, err := NewMock().Generate(context.Background(), Request{Prompt: prompt})
		require.NoError(t, err)

		report, err := analyzer.Analyze(context.Background(), safety.Content{
			HTML: app.HTMLContent, CSS: app.CSSContent, JS: app.JSContent,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, report.Score, publishScore, "%s: %+v %+v", prompt, report.Findings, report.Preflight)
	}
}

// publishScore mirrors the feed's default publish threshold.
const publishScore = 0.5

func TestMockRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMock().Generate(ctx, Request{Prompt: "tip"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseResponse(t *testing.T) {
	app, err := ParseResponse(validReply)
	require.NoError(t, err)
	assert.Equal(t, "Counter", app.Title)
	assert.Equal(t, `<button id="b">0</button>`, app.HTMLContent)

	fenced := "```json\n" + `{"title":"T","description":"D","htmlContent":"<p>{x}</p>","cssContent":"p{}","jsContent":"1"}` + "\n```"
	app, err = ParseResponse(fenced)
	require.NoError(t, err)
	assert.Equal(t, "<p>{x}</p>", app.HTMLContent)

	for name, bad := range map[string]string{
		"no object":       "sorry, I can't help",
		"broken json":     `{"title": "x"`,
		"missing field":   `{"title":"T","description":"D","htmlContent":"<p></p>","cssContent":"p{}"}`,
		"blank field":     `{"title":" ","description":"D","htmlContent":"<p></p>","cssContent":"p{}","jsContent":"1"}`,
		"reversed braces": `} nothing {`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResponse(bad)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(Request{Prompt: ""}), ErrEmptyPrompt)
	assert.ErrorIs(t, Validate(Request{Prompt: "   \n"}), ErrEmptyPrompt)
	assert.NoError(t, Validate(Request{Prompt: "tip calculator"}))

	history := make([]types.ConversationMessage, 51)
	for i := range history {
		history[i] = types.ConversationMessage{Role: "user", Content: "x"}
	}
	assert.ErrorIs(t, Validate(Request{Prompt: "x", History: history}), ErrInvalidHistory)
	assert.ErrorIs(t, Validate(Request{Prompt: "x", History: []types.ConversationMessage{{Role: "system", Content: "x"}}}), ErrInvalidHistory)
	assert.NoError(t, Validate(Request{Prompt: "x", History: history[:50]}))
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(ctx context.Context, req Request) (*types.GeneratedApp, error) {
	return nil, f.err
}
func (f failingGenerator) Name() string { return "failing" }

type generationRecorder struct{ statuses []string }

func (r *generationRecorder) RecordGeneration(provider, status string, d time.Duration) {
	r.statuses = append(r.statuses, provider+":"+status)
}

func TestServiceGenerate(t *testing.T) {
	svc := NewService(NewMock(), safety.NewAnalyzer(nil, nil), nil)
	rec := &generationRecorder{}
	svc.SetRecorder(rec)

	res, err := svc.Generate(context.Background(), Request{Prompt: "tip calculator"})
	require.NoError(t, err)
	assert.Equal(t, "I've created a Smart Tip Calculator for you! Calculate tips with custom percentages and bill splitting", res.Message)
	require.NotNil(t, res.Safety)
	assert.Equal(t, 1.0, res.Safety.Score)
	assert.Equal(t, []string{"mock:success"}, rec.statuses)

	_, err = svc.Generate(context.Background(), Request{Prompt: " "})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Len(t, rec.statuses, 1, "invalid requests never reach the provider")
}

func TestServiceGenerateFailure(t *testing.T) {
	boom := errors.New("upstream exploded")
	svc := NewService(failingGenerator{err: boom}, nil, nil)
	rec := &generationRecorder{}
	svc.SetRecorder(rec)

	_, err := svc.Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"failing:error"}, rec.statuses)
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.Default().Generator

	gen, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, gen.Name())

	cfg.Provider = ProviderAnthropic
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	cfg.AnthropicKey = "sk-test"
	gen, err = New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, gen.Name())

	cfg.Provider = ProviderOpenAI
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	cfg.Provider = "bard"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}

func TestAnthropicGenerate(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": validReply}},
		})
	}))
	defer srv.Close()

	gen, err := NewAnthropic(AnthropicConfig{APIKey: "sk-test", BaseURL: srv.URL, Temperature: 0.7}, nil)
	require.NoError(t, err)

	app, err := gen.Generate(context.Background(), Request{
		Prompt:  "a counter",
		History: []types.ConversationMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Counter", app.Title)

	assert.Equal(t, DefaultAnthropicModel, got.Model)
	assert.Equal(t, 4000, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	assert.Equal(t, SystemPrompt, got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, anthropicMessage{Role: "user", Content: "a counter"}, got.Messages[2])
}

func TestAnthropicErrorsTripBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	gen, err := NewAnthropic(AnthropicConfig{APIKey: "sk-test", BaseURL: srv.URL, RetryMax: 0}, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := gen.Generate(context.Background(), Request{Prompt: "x"})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "overloaded"), err.Error())
	}

	_, err = gen.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, 5, calls, "open breaker short-circuits")
}

func TestAnthropicBadReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"no json here"}]}`))
	}))
	defer srv.Close()

	gen, err := NewAnthropic(AnthropicConfig{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-openai", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": validReply}}},
		})
	}))
	defer srv.Close()

	gen, err := NewOpenAI(OpenAIConfig{APIKey: "sk-openai", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)

	app, err := gen.Generate(context.Background(), Request{
		Prompt:  "a counter",
		History: []types.ConversationMessage{{Role: "assistant", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Counter", app.Title)

	assert.Equal(t, DefaultOpenAIModel, got["model"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 3)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
	assert.Equal(t, "a counter", messages[2].(map[string]any)["content"])
}
