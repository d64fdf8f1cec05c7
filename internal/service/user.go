package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sociallink/backend/internal/db"
	"github.com/sociallink/backend/internal/models"
)

// UserService persists user profiles
type UserService struct {
	users *db.UserRepository
}

// NewUserService creates a user service
func NewUserService(repo *db.Repository) *UserService {
	return &UserService{users: db.NewUserRepository(repo)}
}

// Create inserts a profile
func (s *UserService) Create(ctx context.Context, user *models.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("create user %s: %w", user.ID, err)
	}
	return nil
}

// Get returns a profile joined with its auth fields, or nil
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// GetByAuthID returns the profile owning an auth record, or nil
func (s *UserService) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	return s.users.GetByAuthID(ctx, authID)
}

// AuthService persists credentials and password reset state
type AuthService struct {
	auth *db.AuthRepository
}

// NewAuthService creates an auth service
func NewAuthService(repo *db.Repository) *AuthService {
	return &AuthService{auth: db.NewAuthRepository(repo)}
}

// Create inserts an auth record
func (s *AuthService) Create(ctx context.Context, auth *models.AuthUser) error {
	if err := s.auth.Create(ctx, auth); err != nil {
		return fmt.Errorf("create auth user %s: %w", auth.ID, err)
	}
	return nil
}

// GetByID returns an auth record, or nil
func (s *AuthService) GetByID(ctx context.Context, id string) (*models.AuthUser, error) {
	return s.auth.GetByID(ctx, id)
}

// GetByUsernameOrEmail returns the auth record holding either value, or nil
func (s *AuthService) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.AuthUser, error) {
	return s.auth.GetByUsernameOrEmail(ctx, username, email)
}

// GetByUsername returns an auth record by username, or nil
func (s *AuthService) GetByUsername(ctx context.Context, username string) (*models.AuthUser, error) {
	return s.auth.GetByUsername(ctx, username)
}

// GetByEmail returns an auth record by email, or nil
func (s *AuthService) GetByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	return s.auth.GetByEmail(ctx, email)
}

// SetPasswordResetToken stores a reset token valid until expires
func (s *AuthService) SetPasswordResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return s.auth.SetPasswordResetToken(ctx, id, token, expires)
}

// GetByPasswordResetToken returns the auth record holding an unexpired token, or nil
func (s *AuthService) GetByPasswordResetToken(ctx context.Context, token string) (*models.AuthUser, error) {
	return s.auth.GetByPasswordResetToken(ctx, token, time.Now().UTC())
}

// UpdatePassword stores a new password hash and clears the reset token
func (s *AuthService) UpdatePassword(ctx context.Context, id, hash string) error {
	return s.auth.UpdatePassword(ctx, id, hash)
}
