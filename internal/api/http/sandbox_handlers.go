package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/id"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
)

// Response headers describing a sandbox document
const (
	HeaderSandboxChannel = "X-Sandbox-Channel"
	HeaderSandboxAttr    = "X-Sandbox-Attr"
)

// PreviewApp handles GET /api/apps/:id/preview
func (h *Handlers) PreviewApp(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}

	app, err := h.apps.Get(c.Request.Context(), appID, viewer(c))
	if err != nil {
		h.fail(c, err, "Failed to load app")
		return
	}

	done := h.metrics.Track(serviceSandbox, "preview")
	doc, _, err := h.sandbox.Render(app.ID, sandbox.Content{
		Title: app.Title,
		HTML:  app.HTMLContent,
		CSS:   app.CSSContent,
		JS:    app.JSContent,
	}, h.renderOptions())
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to render app")
		return
	}

	writeDocument(c, doc)
}

// RenderSandbox handles POST /api/sandbox/render
func (h *Handlers) RenderSandbox(c *gin.Context) {
	var req types.RenderRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := utils.ValidateCode(req.HTMLContent, req.CSSContent, req.JSContent); err != nil {
		abort(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	done := h.metrics.Track(serviceSandbox, "render")
	doc, session, err := h.sandbox.Render("", sandbox.Content{
		Title: utils.SanitizeText(req.Title),
		HTML:  req.HTMLContent,
		CSS:   req.CSSContent,
		JS:    req.JSContent,
	}, h.renderOptions())
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to render app")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"html":     doc.HTML,
		"channel":  doc.Channel,
		"csp":      doc.CSP,
		"sandbox":  doc.SandboxAttr,
		"deadline": session.Info().Deadline,
	})
}

// SandboxEvent handles POST /api/apps/:id/events. The host page relays the
// bridge's postMessage payloads here verbatim.
func (h *Handlers) SandboxEvent(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, sandbox.MaxMessageSize+1))
	if err != nil {
		abort(c, http.StatusBadRequest, "Failed to read body", err.Error())
		return
	}
	msg, err := sandbox.Decode(raw)
	if err != nil {
		h.fail(c, err, "Invalid sandbox message")
		return
	}

	session, ok := h.sandbox.Get(msg.Channel)
	if !ok {
		h.fail(c, sandbox.ErrSessionNotFound, "Invalid sandbox message")
		return
	}
	if session.AppID() != appID {
		h.logger.Warn("sandbox message for another app",
			zap.String("channel", msg.Channel),
			zap.String("app_id", appID),
			zap.String("session_app_id", session.AppID()))
		h.fail(c, fmt.Errorf("%w: channel belongs to another app", sandbox.ErrChannelMismatch), "Invalid sandbox message")
		return
	}

	_, transition, err := h.sandbox.Handle(msg)
	if err != nil {
		h.fail(c, err, "Failed to handle sandbox message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"transition": transition,
		"session":    session.Info(),
	})
}

// GetSandboxSession handles GET /api/sandbox/sessions/:channel
func (h *Handlers) GetSandboxSession(c *gin.Context) {
	channel := c.Param("channel")
	if !id.HasPrefix(channel, id.ChannelPrefix) {
		abort(c, http.StatusBadRequest, "channel must be a chn_ ULID", "")
		return
	}

	session, ok := h.sandbox.Get(channel)
	if !ok {
		h.fail(c, sandbox.ErrSessionNotFound, "Failed to fetch session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session.Info(),
	})
}

func (h *Handlers) renderOptions() sandbox.Options {
	return sandbox.Options{TargetOrigin: h.previewOrigin}
}

// writeDocument serves a sandbox document with its security headers
func writeDocument(c *gin.Context, doc *sandbox.Document) {
	c.Header("Content-Security-Policy", doc.HeaderPolicy())
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Referrer-Policy", "no-referrer")
	c.Header("Cache-Control", "no-store")
	c.Header(HeaderSandboxChannel, doc.Channel)
	c.Header(HeaderSandboxAttr, doc.SandboxAttr)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc.HTML))
}
