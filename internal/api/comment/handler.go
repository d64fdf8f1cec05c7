// Package comment serves the comment routes
package comment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sociallink/backend/internal/api/httperr"
	"github.com/sociallink/backend/internal/api/middleware"
	"github.com/sociallink/backend/internal/cache"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/internal/queue"
)

// Store reads comments from the durable store
type Store interface {
	ListForPost(ctx context.Context, postID string) ([]*models.Comment, error)
	Names(ctx context.Context, postID string) (*models.CommentNameList, error)
	Get(ctx context.Context, postID, commentID string) (*models.Comment, error)
}

// Handler serves the comment routes
type Handler struct {
	cache *cache.CommentCache
	store Store
	jobs  queue.Enqueuer
}

// NewHandler creates a comment handler
func NewHandler(commentCache *cache.CommentCache, store Store, jobs queue.Enqueuer) *Handler {
	return &Handler{cache: commentCache, store: store, jobs: jobs}
}

// AddRequest is the body of POST /post/comment
type AddRequest struct {
	PostID         string `json:"postId" binding:"required"`
	UserTo         string `json:"userTo" binding:"required"`
	Comment        string `json:"comment" binding:"required"`
	ProfilePicture string `json:"profilePicture"`
}

// Add handles POST /post/comment
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

	comment := &models.Comment{
		ID:             models.NewID(),
		PostID:         req.PostID,
		Username:       user.Username,
		AvatarColor:    user.AvatarColor,
		ProfilePicture: req.ProfilePicture,
		Body:           req.Comment,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.cache.Save(ctx, req.PostID, comment); err != nil {
		httperr.Abort(c, err)
		return
	}

	h.jobs.Dispatch(ctx, &queue.AddCommentJob{
		PostID:   req.PostID,
		UserTo:   req.UserTo,
		UserFrom: user.UserID,
		Username: user.Username,
		Comment:  comment,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Comment created successfully"})
}

// Comments handles GET /post/comments/:postId
func (h *Handler) Comments(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	comments, err := h.cache.Get(ctx, postID)
	if err == nil && len(comments) == 0 {
		comments, err = h.store.ListForPost(ctx, postID)
	}
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post comments", "comments": comments})
}

// Names handles GET /post/commentsnames/:postId
func (h *Handler) Names(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	names, err := h.cache.Names(ctx, postID)
	if err == nil && names.Count == 0 {
		names, err = h.store.Names(ctx, postID)
	}
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post comments names", "comments": names})
}

// Single handles GET /post/single/comment/:postId/:commentId
func (h *Handler) Single(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		return
	}
	comment, err := h.find(c.Request.Context(), postID, c.Param("commentId"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Single comment", "comments": []*models.Comment{comment}})
}

// Remove handles DELETE /post/comment/:postId/:commentId
func (h *Handler) Remove(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		return
	}
	commentID := c.Param("commentId")
	user, ok := middleware.CurrentUser(c)
	if !ok {
		httperr.Abort(c, httperr.Unauthorized("Token is not available. Please login again."))
		return
	}
	ctx := c.Request.Context()

	comment, err := h.find(ctx, postID, commentID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if !strings.EqualFold(comment.Username, user.Username) {
		httperr.Abort(c, httperr.Forbidden("You can only delete your own comments"))
		return
	}

	if _, err := h.cache.Remove(ctx, postID, commentID); err != nil {
		httperr.Abort(c, err)
		return
	}
	h.jobs.Dispatch(ctx, &queue.RemoveCommentJob{PostID: postID, CommentID: commentID})

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

func (h *Handler) find(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	if !models.ValidID(commentID) {
		return nil, httperr.BadRequest("Invalid comment id")
	}
	comment, err := h.cache.GetOne(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		if comment, err = h.store.Get(ctx, postID, commentID); err != nil {
			return nil, err
		}
	}
	if comment == nil {
		return nil, httperr.NotFound("Comment not found")
	}
	return comment, nil
}

func postParam(c *gin.Context) (string, bool) {
	postID := c.Param("postId")
	if !models.ValidID(postID) {
		httperr.Abort(c, httperr.BadRequest("Invalid post id"))
		return "", false
	}
	return postID, true
}
