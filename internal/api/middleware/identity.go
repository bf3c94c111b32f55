package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
)

// HeaderUserID carries the acting user. There is no authentication; the
// header is trusted as-is.
const HeaderUserID = "X-User-ID"

const userKey = "appfeed.user_id"

// Identity stores the acting user id in the gin context. Requests without
// the header act as defaultUser.
func Identity(defaultUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			userID = defaultUser
		}
		if err := utils.ValidateID(userID, HeaderUserID, true); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

// UserID returns the acting user set by Identity
func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}
