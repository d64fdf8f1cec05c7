// Package reaction serves the reaction routes
package reaction

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sociallink/backend/internal/api/httperr"
	"github.com/sociallink/backend/internal/api/middleware"
	"github.com/sociallink/backend/internal/cache"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/internal/queue"
)

// Store reads reactions from the durable store
type Store interface {
	ListForPost(ctx context.Context, postID string) ([]*models.Reaction, error)
	GetByUsername(ctx context.Context, postID, username string) (*models.Reaction, error)
	ListByUsername(ctx context.Context, username string) ([]*models.Reaction, error)
}

// Handler serves the reaction routes
type Handler struct {
	cache   *cache.ReactionCache
	posts   *cache.PostCache
	store   Store
	sources cache.PostSource
	jobs    queue.Enqueuer
}

// NewHandler creates a reaction handler. Posts that only sources holds are copied
// into postCache before they are reacted to.
func NewHandler(reactionCache *cache.ReactionCache, postCache *cache.PostCache, store Store, sources cache.PostSource, jobs queue.Enqueuer) *Handler {
	return &Handler{cache: reactionCache, posts: postCache, store: store, sources: sources, jobs: jobs}
}

// AddRequest is the body of POST /post/reaction
type AddRequest struct {
	PostID         string `json:"postId" binding:"required"`
	UserTo         string `json:"userTo" binding:"required"`
	Type           string `json:"type" binding:"required,oneof=like love haha wow sad angry"`
	ProfilePicture string `json:"profilePicture"`
}

// Add handles POST /post/reaction. A second reaction by the same user replaces
// the first.
func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, err)
		return
	}
	if !models.ValidID(req.PostID) {
		httperr.Abort(c, httperr.BadRequest("Invalid post id"))
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		httperr.Abort(c, httperr.Unauthorized("Token is not available. Please login again."))
		return
	}
	ctx := c.Request.Context()

	reaction := &models.Reaction{
		ID:             models.NewID(),
		PostID:         req.PostID,
		Type:           models.ReactionType(req.Type),
		Username:       user.Username,
		AvatarColor:    user.AvatarColor,
		ProfilePicture: req.ProfilePicture,
		UserTo:         req.UserTo,
		CreatedAt:      time.Now().UTC(),
	}
	previous, err := h.save(ctx, reaction)
	if errors.Is(err, cache.ErrNotFound) {
		err = httperr.NotFound("Post not found")
	}
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	job := &queue.AddReactionJob{
		PostID:         req.PostID,
		Username:       user.Username,
		UserFrom:       user.UserID,
		UserTo:         req.UserTo,
		Type:           reaction.Type,
		ReactionObject: reaction,
	}
	if previous != nil {
		job.PreviousReaction = previous.Type
	}
	h.jobs.Dispatch(ctx, job)

	c.JSON(http.StatusOK, gin.H{"message": "Reaction added successfully"})
}

// Remove handles DELETE /post/reaction/:postId
func (h *Handler) Remove(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		httperr.Abort(c, httperr.Unauthorized("Token is not available. Please login again."))
		return
	}
	ctx := c.Request.Context()

	removed, err := h.cache.Remove(ctx, postID, user.Username)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	job := &queue.RemoveReactionJob{PostID: postID, Username: user.Username}
	if removed != nil {
		job.PreviousReaction = removed.Type
	}
	h.jobs.Dispatch(ctx, job)

	c.JSON(http.StatusOK, gin.H{"message": "Reaction removed from post"})
}

// Reactions handles GET /post/reactions/:postId
func (h *Handler) Reactions(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	reactions, count, err := h.cache.Get(ctx, postID)
	if err == nil && count == 0 {
		reactions, err = h.store.ListForPost(ctx, postID)
		count = len(reactions)
	}
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Post reactions",
		"reactions": nonNil(reactions),
		"count":     count,
	})
}

// ByUsername handles GET /post/single/reaction/username/:username/:postId
func (h *Handler) ByUsername(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		return
	}
	username := c.Param("username")
	ctx := c.Request.Context()

	reaction, err := h.cache.GetByUsername(ctx, postID, username)
	if err == nil && reaction == nil {
		reaction, err = h.store.GetByUsername(ctx, postID, username)
	}
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	resp := gin.H{"message": "Single post reaction by username", "reactions": reaction, "count": 0}
	if reaction != nil {
		resp["count"] = 1
	}
	c.JSON(http.StatusOK, resp)
}

// AllByUsername handles GET /post/reactions/username/:username. Only the durable
// store indexes reactions by user.
func (h *Handler) AllByUsername(c *gin.Context) {
	reactions, err := h.store.ListByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "All user reactions by username",
		"reactions": nonNil(reactions),
	})
}

// save caches reaction. A post only the store holds is cached first, together
// with its stored reactions, so the replaced reaction is found.
func (h *Handler) save(ctx context.Context, reaction *models.Reaction) (*models.Reaction, error) {
	previous, err := h.cache.Save(ctx, reaction.PostID, reaction)
	if !errors.Is(err, cache.ErrNotFound) || h.sources == nil {
		return previous, err
	}

	stored, err := h.store.ListForPost(ctx, reaction.PostID)
	if err != nil {
		return nil, err
	}
	found, err := h.posts.Warm(ctx, h.sources, reaction.PostID, stored)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, cache.ErrNotFound
	}
	return h.cache.Save(ctx, reaction.PostID, reaction)
}

func postParam(c *gin.Context) (string, bool) {
	postID := c.Param("postId")
	if !models.ValidID(postID) {
		httperr.Abort(c, httperr.BadRequest("Invalid post id"))
		return "", false
	}
	return postID, true
}

func nonNil(reactions []*models.Reaction) []*models.Reaction {
	if reactions == nil {
		return []*models.Reaction{}
	}
	return reactions
}
