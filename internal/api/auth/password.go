package auth

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sociallink/backend/internal/api/httperr"
	"github.com/sociallink/backend/internal/mail"
	"github.com/sociallink/backend/internal/queue"
)

const resetTokenTTL = time.Hour

// ForgotPasswordRequest is the body of POST /forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body of POST /reset-password/:token
type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=4,max=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// ForgotPassword handles POST /forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, err)
		return
	}
	ctx := c.Request.Context()

	authUser, err := h.auth.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if authUser == nil {
		httperr.Abort(c, httperr.BadRequest("Invalid credentials"))
		return
	}

	token, err := resetToken()
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if err := h.auth.SetPasswordResetToken(ctx, authUser.ID, token, time.Now().UTC().Add(resetTokenTTL)); err != nil {
		httperr.Abort(c, err)
		return
	}

	resetLink := h.clientURL + "/reset-password?token=" + url.QueryEscape(token)
	template, err := mail.ForgotPasswordTemplate(authUser.Username, resetLink)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	h.jobs.Dispatch(ctx, &queue.EmailJob{
		ReceiverEmail: authUser.Email,
		Subject:       "Reset Your Password",
		Template:      template,
	})
	h.logger.Info("Password reset requested", zap.String("auth_id", authUser.ID))

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}

// ResetPassword handles POST /reset-password/:token
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, err)
		return
	}
	if req.Password != req.ConfirmPassword {
		httperr.Abort(c, httperr.BadRequest("Passwords do not match"))
		return
	}
	ctx := c.Request.Context()

	authUser, err := h.auth.GetByPasswordResetToken(ctx, c.Param("token"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if authUser == nil {
		httperr.Abort(c, httperr.BadRequest("Reset token has expired"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	if err := h.auth.UpdatePassword(ctx, authUser.ID, string(hash)); err != nil {
		httperr.Abort(c, err)
		return
	}

	template, err := mail.ResetPasswordTemplate(mail.ResetPasswordData{
		Username:  authUser.Username,
		Email:     authUser.Email,
		IPAddress: c.ClientIP(),
		Date:      time.Now().UTC().Format("02/01/2006 15:04"),
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	h.jobs.Dispatch(ctx, &queue.EmailJob{
		ReceiverEmail: authUser.Email,
		Subject:       "Password Reset Confirmation",
		Template:      template,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Password successfully updated"})
}
