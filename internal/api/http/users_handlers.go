package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetProfile handles GET /api/users/:id
func (h *Handlers) GetProfile(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	done := h.metrics.Track(serviceProfile, "get")
	profile, err := h.profiles.Get(c.Request.Context(), userID, viewer(c))
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"profile": profile,
	})
}

// UserApps handles GET /api/users/:id/apps
func (h *Handlers) UserApps(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}
	page, limit, ok := pageQuery(c)
	if !ok {
		return
	}

	result, err := h.profiles.Apps(c.Request.Context(), userID, viewer(c), page, limit)
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

// LikedApps handles GET /api/users/:id/liked
func (h *Handlers) LikedApps(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}
	page, limit, ok := pageQuery(c)
	if !ok {
		return
	}

	result, err := h.profiles.LikedApps(c.Request.Context(), userID, viewer(c), page, limit)
	if err != nil {
		h.fail(c, err, "Failed to fetch liked apps")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"apps":       result.Apps,
		"pagination": result.Pagination,
	})
}

// ToggleFollow handles POST /api/users/:id/follow
func (h *Handlers) ToggleFollow(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	follower, err := h.apps.EnsureUser(ctx, viewer(c))
	if err != nil {
		h.fail(c, err, "Failed to toggle follow")
		return
	}

	done := h.metrics.Track(serviceProfile, "toggle_follow")
	state, err := h.profiles.ToggleFollow(ctx, follower.ID, userID)
	done(err)
	if err != nil {
		h.fail(c, err, "Failed to toggle follow")
		return
	}

	message := "User unfollowed"
	if state.IsFollowing {
		message = "User followed"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"isFollowing": state.IsFollowing,
		"followers":   state.Followers,
		"message":     message,
	})
}
