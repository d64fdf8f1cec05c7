package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sociallink/backend/internal/api/httperr"
)

// SessionCookie holds the token for browser clients
const SessionCookie = "session"

const (
	currentUserKey = "currentUser"
	tokenKey       = "token"
)

// AuthPayload identifies the signed-in user
type AuthPayload struct {
	UserID      string `json:"userId"`
	UID         string `json:"uId"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AvatarColor string `json:"avatarColor"`
}

type claims struct {
	AuthPayload
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token carrying payload, valid for ttl
func SignToken(secret string, ttl time.Duration, payload AuthPayload) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		AuthPayload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies a token and returns its payload
func ParseToken(secret, tokenStr string) (*AuthPayload, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || c.UserID == "" {
		return nil, errors.New("token carries no user")
	}
	return &c.AuthPayload, nil
}

// RequireAuth rejects requests without a valid token in the Authorization header
// or the session cookie
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := requestToken(c)
		if tokenStr == "" {
			httperr.Abort(c, httperr.Unauthorized("Token is not available. Please login again."))
			return
		}

		payload, err := ParseToken(secret, tokenStr)
		if err != nil {
			httperr.Abort(c, httperr.Unauthorized("Token is invalid. Please login again."))
			return
		}

		c.Set(currentUserKey, payload)
		c.Set(tokenKey, tokenStr)
		c.Next()
	}
}

func requestToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentUser returns the payload set by RequireAuth
func CurrentUser(c *gin.Context) (*AuthPayload, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	payload, ok := v.(*AuthPayload)
	return payload, ok
}

// Token returns the raw token the request was authenticated with
func Token(c *gin.Context) string {
	return c.GetString(tokenKey)
}
