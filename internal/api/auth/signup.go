package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/sociallink/backend/internal/api/httperr"
	"github.com/sociallink/backend/internal/api/middleware"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/internal/queue"
)

// SignupRequest is the body of POST /signup. AvatarImage is the URL of an
// already uploaded picture.
type SignupRequest struct {
	Username    string `json:"username" binding:"required,min=4,max=8"`
	Password    string `json:"password" binding:"required,min=4,max=8"`
	Email       string `json:"email" binding:"required,email"`
	AvatarColor string `json:"avatarColor" binding:"required"`
	AvatarImage string `json:"avatarImage"`
}

// SigninRequest is the body of POST /signin
type SigninRequest struct {
	Username string `json:"username" binding:"required,min=4,max=8"`
	Password string `json:"password" binding:"required,min=4,max=8"`
}

// Signup handles POST /signup
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, err)
		return
	}
	ctx := c.Request.Context()

	username := models.FirstLetterUppercase(req.Username)
	email := strings.ToLower(req.Email)

	existing, err := h.auth.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if existing != nil {
		httperr.Abort(c, httperr.BadRequest("Invalid credentials"))
		return
	}

	uID, err := randomDigits(12)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	now := time.Now().UTC()
	authUser := &models.AuthUser{
		ID:          models.NewID(),
		UID:         uID,
		Username:    username,
		Email:       email,
		Password:    string(hash),
		AvatarColor: req.AvatarColor,
		CreatedAt:   now,
	}
	user := newUser(authUser, models.NewID(), req.AvatarImage, now)

	if err := h.userCache.Save(ctx, user.ID, uID, user); err != nil {
		httperr.Abort(c, err)
		return
	}

	h.jobs.Dispatch(ctx, &queue.AddAuthUserJob{Value: authUser})
	h.jobs.Dispatch(ctx, &queue.AddUserJob{Value: user})

	token, err := h.issueToken(c, payloadFor(user))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
		"token":   token,
	})
}

func newUser(auth *models.AuthUser, id, profilePicture string, now time.Time) *models.User {
	return &models.User{
		ID:             id,
		AuthID:         auth.ID,
		UID:            auth.UID,
		Username:       auth.Username,
		Email:          auth.Email,
		AvatarColor:    auth.AvatarColor,
		ProfilePicture: profilePicture,
		Blocked:        []string{},
		BlockedBy:      []string{},
		Notifications:  datatypes.NewJSONType(models.DefaultNotificationSettings()),
		Social:         datatypes.NewJSONType(models.SocialLinks{}),
		CreatedAt:      now,
	}
}

// Signin handles POST /signin
func (h *Handler) Signin(c *gin.Context) {
	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, err)
		return
	}
	ctx := c.Request.Context()

	authUser, err := h.auth.GetByUsername(ctx, models.FirstLetterUppercase(req.Username))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if authUser == nil || bcrypt.CompareHashAndPassword([]byte(authUser.Password), []byte(req.Password)) != nil {
		httperr.Abort(c, httperr.BadRequest("Invalid credentials"))
		return
	}

	user, err := h.users.GetByAuthID(ctx, authUser.ID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if user == nil {
		httperr.Abort(c, httperr.BadRequest("Invalid credentials"))
		return
	}

	token, err := h.issueToken(c, payloadFor(user))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User login successfully",
		"user":    user,
		"token":   token,
	})
}

// Signout handles GET /signout
func (h *Handler) Signout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cfg.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logout successful",
		"user":    gin.H{},
		"token":   "",
	})
}
