// Package auth serves signup, signin and password reset.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/api/middleware"
	"github.com/sociallink/backend/internal/cache"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/internal/queue"
	"github.com/sociallink/backend/pkg/config"
	"github.com/sociallink/backend/pkg/logging"
)

// AuthStore reads and updates credentials in the durable store
type AuthStore interface {
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.AuthUser, error)
	GetByUsername(ctx context.Context, username string) (*models.AuthUser, error)
	GetByEmail(ctx context.Context, email string) (*models.AuthUser, error)
	SetPasswordResetToken(ctx context.Context, id, token string, expires time.Time) error
	GetByPasswordResetToken(ctx context.Context, token string) (*models.AuthUser, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// UserStore reads profiles from the durable store
type UserStore interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	GetByAuthID(ctx context.Context, authID string) (*models.User, error)
}

// Handler serves the auth routes
type Handler struct {
	auth      AuthStore
	users     UserStore
	userCache *cache.UserCache
	jobs      queue.Enqueuer
	cfg       config.AuthConfig
	clientURL string
	logger    *zap.Logger
}

// NewHandler creates an auth handler
func NewHandler(auth AuthStore, users UserStore, userCache *cache.UserCache, jobs queue.Enqueuer, cfg *config.Config) *Handler {
	return &Handler{
		auth:      auth,
		users:     users,
		userCache: userCache,
		jobs:      jobs,
		cfg:       cfg.Auth,
		clientURL: cfg.Server.ClientURL,
		logger:    logging.WithComponent("authHandler"),
	}
}

func (h *Handler) issueToken(c *gin.Context, payload middleware.AuthPayload) (string, error) {
	token, err := middleware.SignToken(h.cfg.JWTSecret, h.cfg.TokenTTL, payload)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.cfg.TokenTTL.Seconds()), "/", "", h.cfg.SecureCookie, true)
	return token, nil
}

func payloadFor(user *models.User) middleware.AuthPayload {
	return middleware.AuthPayload{
		UserID:      user.ID,
		UID:         user.UID,
		Email:       user.Email,
		Username:    user.Username,
		AvatarColor: user.AvatarColor,
	}
}

// randomDigits returns n decimal digits without a leading zero
func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		lo := int64(0)
		if i == 0 {
			lo = 1
		}
		d, err := rand.Int(rand.Reader, big.NewInt(10-lo))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + lo + d.Int64())
	}
	return string(digits), nil
}

func resetToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
