package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/api/httperr"
	"github.com/sociallink/backend/internal/api/middleware"
)

// CurrentUser handles GET /currentuser. A profile missing from the cache is read
// from the store and cached again.
func (h *Handler) CurrentUser(c *gin.Context) {
	payload, ok := middleware.CurrentUser(c)
	if !ok {
		httperr.Abort(c, httperr.Unauthorized("Token is not available. Please login again."))
		return
	}
	ctx := c.Request.Context()

	user, err := h.userCache.Get(ctx, payload.UserID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	if user == nil {
		user, err = h.users.Get(ctx, payload.UserID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		if user != nil {
			if err := h.userCache.Save(ctx, user.ID, user.UID, user); err != nil {
				h.logger.Warn("Failed to repopulate user cache", zap.String("user_id", user.ID), zap.Error(err))
			}
		}
	}

	if user == nil {
		c.JSON(http.StatusOK, gin.H{"isUser": false, "token": "", "user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"isUser": true,
		"token":  middleware.Token(c),
		"user":   user,
	})
}
