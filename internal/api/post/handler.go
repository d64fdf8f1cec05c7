// Package post serves the post routes. Writes go to the cache and are queued for
// the durable store; reads prefer the cache.
package post

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sociallink/backend/internal/api/httperr"
	"github.com/sociallink/backend/internal/api/middleware"
	"github.com/sociallink/backend/internal/cache"
	"github.com/sociallink/backend/internal/db"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/internal/queue"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// Store reads posts from the durable store
type Store interface {
	List(ctx context.Context, q db.PostQuery, skip, limit int) ([]*models.Post, error)
	Count(ctx context.Context, q db.PostQuery) (int64, error)
	Get(ctx context.Context, postID string) (*models.Post, error)
	AuthorUID(ctx context.Context, userID string) (string, error)
}

// Handler serves the post routes
type Handler struct {
	cache *cache.PostCache
	store Store
	jobs  queue.Enqueuer
}

// NewHandler creates a post handler
func NewHandler(postCache *cache.PostCache, store Store, jobs queue.Enqueuer) *Handler {
	return &Handler{cache: postCache, store: store, jobs: jobs}
}

// CreateRequest is the body of POST /post
type CreateRequest struct {
	Post           string `json:"post"`
	BgColor        string `json:"bgColor"`
	Privacy        string `json:"privacy" binding:"omitempty,oneof=Public Private Followers"`
	GifURL         string `json:"gifUrl"`
	Feelings       string `json:"feelings"`
	ProfilePicture string `json:"profilePicture"`
}

// CreateWithImageRequest is the body of POST /post/image. The image is already
// uploaded; ImgID and ImgVersion locate it.
type CreateWithImageRequest struct {
	CreateRequest
	ImgID      string `json:"imgId" binding:"required"`
	ImgVersion string `json:"imgVersion" binding:"required"`
}

// UpdateRequest is the body of PUT /post/:postId. Absent fields are left unchanged.
type UpdateRequest struct {
	Post           *string `json:"post"`
	BgColor        *string `json:"bgColor"`
	Privacy        *string `json:"privacy" binding:"omitempty,oneof=Public Private Followers"`
	GifURL         *string `json:"gifUrl"`
	Feelings       *string `json:"feelings"`
	ProfilePicture *string `json:"profilePicture"`
	ImgID          *string `json:"imgId"`
	ImgVersion     *string `json:"imgVersion"`
}

// Create handles POST /post
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, err)
		return
	}
	if h.create(c, req, "", "") {
		c.JSON(http.StatusCreated, gin.H{"message": "Post created successfully"})
	}
}

// CreateWithImage handles POST /post/image
func (h *Handler) CreateWithImage(c *gin.Context) {
	var req CreateWithImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, err)
		return
	}
	if h.create(c, req.CreateRequest, req.ImgID, req.ImgVersion) {
		c.JSON(http.StatusCreated, gin.H{"message": "Post created with image successfully"})
	}
}

func (h *Handler) create(c *gin.Context, req CreateRequest, imgID, imgVersion string) bool {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		httperr.Abort(c, httperr.Unauthorized("Token is not available. Please login again."))
		return false
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	post := &models.Post{
		ID:             models.NewID(),
		UserID:         user.UserID,
		Username:       user.Username,
		Email:          user.Email,
		AvatarColor:    user.AvatarColor,
		ProfilePicture: req.ProfilePicture,
		Body:           req.Post,
		BgColor:        req.BgColor,
		Feelings:       req.Feelings,
		Privacy:        privacy,
		GifURL:         req.GifURL,
		ImgVersion:     imgVersion,
		ImgID:          imgID,
		Reactions:      models.NewReactions(),
		CreatedAt:      time.Now().UTC(),
	}

	ctx := c.Request.Context()
	err := h.cache.Save(ctx, cache.SavePostInput{
		Key:           post.ID,
		CurrentUserID: user.UserID,
		UID:           user.UID,
		Post:          post,
	})
	if err != nil {
		httperr.Abort(c, err)
		return false
	}

	h.jobs.Dispatch(ctx, &queue.SavePostJob{Key: user.UserID, Value: post})
	return true
}

// All handles GET /post/all
func (h *Handler) All(c *gin.Context) {
	h.list(c, false, "All posts")
}

// WithImages handles GET /post/images
func (h *Handler) WithImages(c *gin.Context) {
	h.list(c, true, "All posts with images")
}

func (h *Handler) list(c *gin.Context, withMedia bool, message string) {
	page, size := paging(c)
	start := int64((page - 1) * size)
	stop := start + int64(size) - 1
	ctx := c.Request.Context()

	var (
		posts []*models.Post
		err   error
	)
	if withMedia {
		posts, err = h.cache.GetRangeWithImages(ctx, start, stop)
	} else {
		posts, err = h.cache.GetRange(ctx, start, stop)
	}
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	var total int64
	switch {
	case len(posts) > 0 && withMedia:
		total, err = h.cache.CountWithImages(ctx)
	case len(posts) > 0:
		total, err = h.cache.Count(ctx)
	default:
		q := db.PostQuery{WithMedia: withMedia}
		if posts, err = h.store.List(ctx, q, int(start), size); err == nil {
			total, err = h.store.Count(ctx, q)
		}
	}
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data": gin.H{
			"posts":      nonNil(posts),
			"totalPosts": total,
		},
	})
}

// UserPosts handles GET /post/user/:uId
func (h *Handler) UserPosts(c *gin.Context) {
	uID, err := strconv.ParseInt(c.Param("uId"), 10, 64)
	if err != nil || uID <= 0 {
		httperr.Abort(c, httperr.BadRequest("Invalid uId"))
		return
	}
	ctx := c.Request.Context()

	posts, err := h.cache.GetUserPosts(ctx, uID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	total := int64(len(posts))
	if total == 0 {
		q := db.PostQuery{UID: c.Param("uId")}
		if posts, err = h.store.List(ctx, q, 0, maxPageSize); err == nil {
			total, err = h.store.Count(ctx, q)
		}
		if err != nil {
			httperr.Abort(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User posts",
		"data": gin.H{
			"posts":      nonNil(posts),
			"totalPosts": total,
		},
	})
}

// Get handles GET /post/:postId
func (h *Handler) Get(c *gin.Context) {
	post, err := h.find(c.Request.Context(), c.Param("postId"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Single post",
		"data":    gin.H{"post": post},
	})
}

// Update handles PUT /post/:postId
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, err)
		return
	}
	postID := c.Param("postId")
	ctx := c.Request.Context()

	if _, err := h.owned(c, postID); err != nil {
		httperr.Abort(c, err)
		return
	}

	changes := models.PostUpdate{
		Body:           req.Post,
		BgColor:        req.BgColor,
		Feelings:       req.Feelings,
		Privacy:        req.Privacy,
		GifURL:         req.GifURL,
		ProfilePicture: req.ProfilePicture,
		ImgVersion:     req.ImgVersion,
		ImgID:          req.ImgID,
	}
	updated, err := h.update(ctx, postID, changes)
	if errors.Is(err, cache.ErrNotFound) {
		err = httperr.NotFound("Post not found")
	}
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	h.jobs.Dispatch(ctx, &queue.UpdatePostJob{Key: postID, Value: updated})

	c.JSON(http.StatusOK, gin.H{
		"message": "Post updated successfully",
		"data":    gin.H{"post": updated},
	})
}

// Delete handles DELETE /post/:postId
func (h *Handler) Delete(c *gin.Context) {
	postID := c.Param("postId")
	ctx := c.Request.Context()

	user, err := h.owned(c, postID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	if err := h.cache.Delete(ctx, postID, user.UserID); err != nil {
		httperr.Abort(c, err)
		return
	}
	h.jobs.Dispatch(ctx, &queue.DeletePostJob{KeyOne: postID, KeyTwo: user.UserID})

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// update applies u to the cached post. A post only the store holds is cached
// first.
func (h *Handler) update(ctx context.Context, postID string, u models.PostUpdate) (*models.Post, error) {
	updated, err := h.cache.Update(ctx, postID, u)
	if !errors.Is(err, cache.ErrNotFound) {
		return updated, err
	}
	found, err := h.cache.Warm(ctx, h.store, postID, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, cache.ErrNotFound
	}
	return h.cache.Update(ctx, postID, u)
}

// find reads a post from the cache, then from the store
func (h *Handler) find(ctx context.Context, postID string) (*models.Post, error) {
	if !models.ValidID(postID) {
		return nil, httperr.BadRequest("Invalid post id")
	}

	post, err := h.cache.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		if post, err = h.store.Get(ctx, postID); err != nil {
			return nil, err
		}
	}
	if post == nil {
		return nil, httperr.NotFound("Post not found")
	}
	return post, nil
}

// owned checks that the signed-in user wrote the post
func (h *Handler) owned(c *gin.Context, postID string) (*middleware.AuthPayload, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, httperr.Unauthorized("Token is not available. Please login again.")
	}
	post, err := h.find(c.Request.Context(), postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != user.UserID {
		return nil, httperr.Forbidden("You can only change your own posts")
	}
	return user, nil
}

func paging(c *gin.Context) (page, size int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(c.Query("pageSize"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func nonNil(posts []*models.Post) []*models.Post {
	if posts == nil {
		return []*models.Post{}
	}
	return posts
}
