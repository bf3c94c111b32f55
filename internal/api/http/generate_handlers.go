package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/generator"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

// Generate handles POST /api/claude/generate
func (h *Handlers) Generate(c *gin.Context) {
	var req types.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	var result *generator.Result
	err := h.trace(c.Request.Context(), "generate", func(ctx context.Context) error {
		var err error
		result, err = h.generator.Generate(ctx, generator.Request{
			Prompt:  req.Prompt,
			History: req.ConversationHistory,
		})
		return err
	})
	if err != nil {
		if isBadRequest(err) || errors.Is(err, generator.ErrEmptyPrompt) {
			h.fail(c, err, "Failed to generate app")
			return
		}
		abort(c, http.StatusInternalServerError, "Failed to generate app", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"app":     result.App,
		"message": result.Message,
		"safety":  result.Safety,
	})
}

// trace runs fn in a span when tracing is enabled
func (h *Handlers) trace(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if h.tracer == nil {
		return fn(ctx)
	}
	return h.tracer.Trace(ctx, name, fn)
}
