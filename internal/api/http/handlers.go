package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/apps"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/bundle"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/generator"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/profile"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox"
)

// Version is reported by the root and health endpoints
const Version = "0.1.0"

// Deps are the services the handlers call into
type Deps struct {
	Apps      *apps.Manager
	Profiles  *profile.Manager
	Generator *generator.Service
	Sandbox   *sandbox.Registry
	Metrics   *monitoring.Metrics
	Tracer    *tracing.Tracer
	Logger    *zap.Logger
	// PreviewOrigin is the postMessage target origin baked into previews
	PreviewOrigin string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	apps          *apps.Manager
	profiles      *profile.Manager
	generator     *generator.Service
	sandbox       *sandbox.Registry
	metrics       *HandlerMetrics
	stats         *monitoring.Metrics
	tracer        *tracing.Tracer
	logger        *zap.Logger
	previewOrigin string
}

// NewHandlers creates a new handler set
func NewHandlers(d Deps) *Handlers {
	registerValidators()
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		apps:          d.Apps,
		profiles:      d.Profiles,
		generator:     d.Generator,
		sandbox:       d.Sandbox,
		metrics:       NewHandlerMetrics(d.Metrics),
		stats:         d.Metrics,
		tracer:        d.Tracer,
		logger:        logger,
		previewOrigin: d.PreviewOrigin,
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api")

	feed := api.Group("/apps")
	feed.GET("", h.ListApps)
	feed.POST("", h.CreateApp)
	feed.GET("/trending", h.TrendingApps)
	feed.POST("/import", h.ImportApp)
	feed.GET("/:id", h.GetApp)
	feed.DELETE("/:id", h.DeleteApp)
	feed.GET("/:id/like", h.LikeStatus)
	feed.POST("/:id/like", h.ToggleLike)
	feed.GET("/:id/comments", h.ListComments)
	feed.POST("/:id/comments", h.AddComment)
	feed.GET("/:id/preview", h.PreviewApp)
	feed.GET("/:id/export", h.ExportApp)
	feed.POST("/:id/events", h.SandboxEvent)

	sb := api.Group("/sandbox")
	sb.POST("/render", h.RenderSandbox)
	sb.GET("/sessions/:channel", h.GetSandboxSession)

	api.POST("/claude/generate", h.Generate)

	users := api.Group("/users")
	users.GET("/:id", h.GetProfile)
	users.GET("/:id/apps", h.UserApps)
	users.GET("/:id/liked", h.LikedApps)
	users.POST("/:id/follow", h.ToggleFollow)

	if h.stats != nil {
		r.GET("/metrics", gin.WrapH(h.stats.Handler()))
		r.GET("/metrics/json", h.MetricsJSON)
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "AppFeed API",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   Version,
		"generator": h.generator.Provider(),
		"sandbox": gin.H{
			"sessions": h.sandbox.Len(),
			"states":   h.sandbox.Counts(),
		},
	})
}

// errorBody is the wire shape of every failure
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func abort(c *gin.Context, status int, msg, details string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg, Details: details})
}

// fail maps a domain error to a response. fallback is the message used for
// unexpected errors, which also get logged.
func (h *Handlers) fail(c *gin.Context, err error, fallback string) {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, apps.ErrMissingFields):
		abort(c, http.StatusBadRequest, "Missing required fields", "")
	case errors.Is(err, apps.ErrNotFound):
		abort(c, http.StatusNotFound, "App not found", "")
	case errors.Is(err, apps.ErrUserNotFound), errors.Is(err, profile.ErrNotFound):
		abort(c, http.StatusNotFound, "User not found", "")
	case errors.Is(err, sandbox.ErrSessionNotFound):
		abort(c, http.StatusNotFound, "Sandbox session not found", "")
	case errors.Is(err, apps.ErrForbidden):
		abort(c, http.StatusForbidden, "Only the owner can do that", "")
	case errors.Is(err, generator.ErrEmptyPrompt):
		abort(c, http.StatusBadRequest, "Prompt is required", "")
	case errors.Is(err, bundle.ErrTooLarge):
		abort(c, http.StatusRequestEntityTooLarge, "Upload too large", err.Error())
	case errors.Is(err, bundle.ErrUnsupportedType):
		abort(c, http.StatusUnsupportedMediaType, "Unsupported file type", err.Error())
	case errors.As(err, &verr):
		abort(c, http.StatusBadRequest, "Invalid request", validationDetails(verr))
	case isBadRequest(err):
		abort(c, http.StatusBadRequest, err.Error(), "")
	default:
		h.logger.Error(fallback,
			zap.String("path", c.FullPath()),
			zap.Error(err))
		abort(c, http.StatusInternalServerError, fallback, err.Error())
	}
}

func isBadRequest(err error) bool {
	for _, target := range []error{
		apps.ErrInvalid,
		apps.ErrInvalidComment,
		apps.ErrInvalidPage,
		profile.ErrSelfFollow,
		generator.ErrInvalidPrompt,
		generator.ErrInvalidHistory,
		bundle.ErrInvalidBundle,
		sandbox.ErrMessageTooLarge,
		sandbox.ErrMalformedMessage,
		sandbox.ErrUnsupportedVersion,
		sandbox.ErrUnknownMessageType,
		sandbox.ErrMissingChannel,
		sandbox.ErrInvalidAction,
		sandbox.ErrInvalidConsoleLevel,
		sandbox.ErrTooManyArgs,
		sandbox.ErrChannelMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// queryInt reads an optional integer query parameter. Missing means zero.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		abort(c, http.StatusBadRequest, "Invalid "+name+" parameter", raw)
		return 0, false
	}
	return v, true
}

// pageQuery reads page and limit
func pageQuery(c *gin.Context) (page, limit int, ok bool) {
	if page, ok = queryInt(c, "page"); !ok {
		return 0, 0, false
	}
	if limit, ok = queryInt(c, "limit"); !ok {
		return 0, 0, false
	}
	return page, limit, true
}

func viewer(c *gin.Context) string {
	return middleware.UserID(c)
}
