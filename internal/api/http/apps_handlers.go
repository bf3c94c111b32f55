package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/apps"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
)

// ListApps handles GET /api/apps
func (h *Handlers) ListApps(c *gin.Context) {
	page, limit, ok := pageQuery(c)
	if !ok {
		return
	}
	userID := c.Query("userId")
	if err := utils.ValidateID(userID, "userId", false); err != nil {
		abort(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	done := h.metrics.Track(serviceFeed, "list")
	result, err := h.apps.List(c.Request.Context(), apps.ListOptions{
		Page:   page,
		Limit:  limit,
		UserID: userID,
		Viewer: viewer(c),
	})
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to fetch apps")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"apps":       result.Apps,
		"pagination": result.Pagination,
	})
}

// TrendingApps handles GET /api/apps/trending
func (h *Handlers) TrendingApps(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	done := h.metrics.Track(serviceFeed, "trending")
	list, err := h.apps.Trending(c.Request.Context(), limit, viewer(c))
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to fetch trending apps")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"apps":    list,
	})
}

// CreateApp handles POST /api/apps
func (h *Handlers) CreateApp(c *gin.Context) {
	var req types.CreateAppRequest
	if !bindJSON(c, &req) {
		return
	}

	done := h.metrics.Track(serviceFeed, "create")
	app, report, err := h.apps.Create(c.Request.Context(), apps.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		HTMLContent: req.HTMLContent,
		CSSContent:  req.CSSContent,
		JSContent:   req.JSContent,
		PromptUsed:  req.PromptUsed,
		UserID:      viewer(c),
	})
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to create app")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"app":     app,
		"safety":  report,
		"message": "App created successfully",
	})
}

// GetApp handles GET /api/apps/:id
func (h *Handlers) GetApp(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}

	app, err := h.apps.Get(c.Request.Context(), appID, viewer(c))
	if err != nil {
		h.fail(c, err, "Failed to fetch app")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"app":     app,
	})
}

// DeleteApp handles DELETE /api/apps/:id
func (h *Handlers) DeleteApp(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}

	done := h.metrics.Track(serviceFeed, "delete")
	err := h.apps.Delete(c.Request.Context(), appID, viewer(c))
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to delete app")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "App deleted",
	})
}

// ToggleLike handles POST /api/apps/:id/like
func (h *Handlers) ToggleLike(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}

	done := h.metrics.Track(serviceSocial, "toggle_like")
	state, err := h.apps.ToggleLike(c.Request.Context(), appID, viewer(c))
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to toggle like")
		return
	}

	message := "App unliked"
	if state.IsLiked {
		message = "App liked"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"isLiked":   state.IsLiked,
		"likeCount": state.LikeCount,
		"message":   message,
	})
}

// LikeStatus handles GET /api/apps/:id/like
func (h *Handlers) LikeStatus(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}

	state, err := h.apps.LikeStatus(c.Request.Context(), appID, viewer(c))
	if err != nil {
		h.fail(c, err, "Failed to get like status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"isLiked":   state.IsLiked,
		"likeCount": state.LikeCount,
	})
}

// ListComments handles GET /api/apps/:id/comments
func (h *Handlers) ListComments(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}
	page, limit, ok := pageQuery(c)
	if !ok {
		return
	}

	result, err := h.apps.ListComments(c.Request.Context(), appID, viewer(c), page, limit)
	if err != nil {
		h.fail(c, err, "Failed to fetch comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"comments":   result.Comments,
		"pagination": result.Pagination,
	})
}

// AddComment handles POST /api/apps/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	appID, ok := pathID(c)
	if !ok {
		return
	}

	var req types.CommentRequest
	if !bindJSON(c, &req) {
		return
	}

	done := h.metrics.Track(serviceSocial, "comment")
	comment, count, err := h.apps.AddComment(c.Request.Context(), appID, viewer(c), req.Body)
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to add comment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"comment":  comment,
		"comments": count,
	})
}

// pathID reads and validates the :id path parameter
func pathID(c *gin.Context) (string, bool) {
	v := c.Param("id")
	if err := utils.ValidateID(v, "id", true); err != nil {
		abort(c, http.StatusBadRequest, err.Error(), "")
		return "", false
	}
	return v, true
}
