package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sociallink/backend/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// first loads one row into dest, mapping a missing row to (false, nil)
func (r *Repository) first(query *gorm.DB, dest interface{}) (bool, error) {
	if err := query.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// insertIgnore inserts row unless its primary key or a unique key already exists.
// It reports whether a row was written.
func (r *Repository) insertIgnore(ctx context.Context, row interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// addToCounter adds delta to an integer column of the row with the given id. A
// decrement never takes the column below zero.
func (r *Repository) addToCounter(ctx context.Context, model interface{}, id, column string, delta int) error {
	query := r.db.WithContext(ctx).Model(model).Where("id = ?", id)
	if delta < 0 {
		query = query.Where(fmt.Sprintf("%s >= ?", column), -delta)
	}
	return query.UpdateColumn(column, gorm.Expr(fmt.Sprintf("%s + ?", column), delta)).Error
}

func lower(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthRepository provides credential-related database operations
type AuthRepository struct {
	*Repository
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(repo *Repository) *AuthRepository {
	return &AuthRepository{Repository: repo}
}

// Create inserts an auth record; a redelivered record is ignored
func (r *AuthRepository) Create(ctx context.Context, auth *models.AuthUser) error {
	_, err := r.insertIgnore(ctx, auth)
	return err
}

// GetByID retrieves an auth record by id
func (r *AuthRepository) GetByID(ctx context.Context, id string) (*models.AuthUser, error) {
	var auth models.AuthUser
	found, err := r.first(r.db.WithContext(ctx).Where("id = ?", id), &auth)
	if err != nil || !found {
		return nil, err
	}
	return &auth, nil
}

// GetByUsernameOrEmail retrieves the auth record matching either the username or the email
func (r *AuthRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.AuthUser, error) {
	var auth models.AuthUser
	query := r.db.WithContext(ctx).
		Where("username = ?", models.FirstLetterUppercase(username)).
		Or("email = ?", lower(email))
	found, err := r.first(query, &auth)
	if err != nil || !found {
		return nil, err
	}
	return &auth, nil
}

// GetByUsername retrieves an auth record by username
func (r *AuthRepository) GetByUsername(ctx context.Context, username string) (*models.AuthUser, error) {
	var auth models.AuthUser
	found, err := r.first(r.db.WithContext(ctx).Where("username = ?", models.FirstLetterUppercase(username)), &auth)
	if err != nil || !found {
		return nil, err
	}
	return &auth, nil
}

// GetByEmail retrieves an auth record by email
func (r *AuthRepository) GetByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	var auth models.AuthUser
	found, err := r.first(r.db.WithContext(ctx).Where("email = ?", lower(email)), &auth)
	if err != nil || !found {
		return nil, err
	}
	return &auth, nil
}

// SetPasswordResetToken stores a reset token valid until expires
func (r *AuthRepository) SetPasswordResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AuthUser{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_reset_token":   token,
			"password_reset_expires": expires,
		}).Error
}

// GetByPasswordResetToken retrieves the auth record holding token, if it has not expired at now
func (r *AuthRepository) GetByPasswordResetToken(ctx context.Context, token string, now time.Time) (*models.AuthUser, error) {
	if token == "" {
		return nil, nil
	}
	var auth models.AuthUser
	query := r.db.WithContext(ctx).
		Where("password_reset_token = ?", token).
		Where("password_reset_expires > ?", now)
	found, err := r.first(query, &auth)
	if err != nil || !found {
		return nil, err
	}
	return &auth, nil
}

// UpdatePassword replaces the password hash and clears the reset token
func (r *AuthRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.AuthUser{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password":               hash,
			"password_reset_token":   "",
			"password_reset_expires": nil,
		}).Error
}

// UserRepository provides profile-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// Create inserts a profile; a redelivered profile is ignored
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.insertIgnore(ctx, user)
	return err
}

func (r *UserRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.*, auth_users.uid, auth_users.username, auth_users.email, auth_users.avatar_color").
		Joins("JOIN auth_users ON auth_users.id = users.auth_id")
}

// GetByID retrieves a profile with its auth fields
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := r.first(r.joined(ctx).Where("users.id = ?", id), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// GetByAuthID retrieves the profile belonging to an auth record
func (r *UserRepository) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	var user models.User
	found, err := r.first(r.joined(ctx).Where("users.auth_id = ?", authID), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// AddPostsCount adds delta to a profile's posts counter
func (r *UserRepository) AddPostsCount(ctx context.Context, id string, delta int) error {
	return r.addToCounter(ctx, &models.User{}, id, "posts_count", delta)
}

// PostQuery filters post listings
type PostQuery struct {
	UserID string
	// UID selects the posts of the user holding this numeric id
	UID       string
	WithMedia bool
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// Create inserts a post. It reports false when the post already existed.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) (bool, error) {
	return r.insertIgnore(ctx, post)
}

// GetByID retrieves a post by id
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	found, err := r.first(r.db.WithContext(ctx).Where("id = ?", id), &post)
	if err != nil || !found {
		return nil, err
	}
	return &post, nil
}

// Update writes the editable fields of post
func (r *PostRepository) Update(ctx context.Context, id string, post *models.Post) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"post":            post.Body,
			"bg_color":        post.BgColor,
			"feelings":        post.Feelings,
			"privacy":         post.Privacy,
			"gif_url":         post.GifURL,
			"profile_picture": post.ProfilePicture,
			"img_version":     post.ImgVersion,
			"img_id":          post.ImgID,
		}).Error
}

// Delete removes a post. It reports whether a row was deleted.
func (r *PostRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostRepository) filtered(ctx context.Context, q PostQuery) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Post{})
	if q.UserID != "" {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.UID != "" {
		owners := r.db.WithContext(ctx).
			Table("users").
			Select("users.id").
			Joins("JOIN auth_users ON auth_users.id = users.auth_id").
			Where("auth_users.uid = ?", q.UID)
		query = query.Where("user_id IN (?)", owners)
	}
	if q.WithMedia {
		query = query.Where("(img_id <> '' AND img_version <> '') OR gif_url <> ''")
	}
	return query
}

// List returns posts matching q, newest first
func (r *PostRepository) List(ctx context.Context, q PostQuery, skip, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.filtered(ctx, q).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Count returns the number of posts matching q
func (r *PostRepository) Count(ctx context.Context, q PostQuery) (int64, error) {
	var n int64
	if err := r.filtered(ctx, q).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// AuthorUID returns the numeric uId of the user owning userID's profile, or an
// empty string when there is no such profile
func (r *PostRepository) AuthorUID(ctx context.Context, userID string) (string, error) {
	var uids []string
	err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN auth_users ON auth_users.id = users.auth_id").
		Where("users.id = ?", userID).
		Limit(1).
		Pluck("auth_users.uid", &uids).Error
	if err != nil || len(uids) == 0 {
		return "", err
	}
	return uids[0], nil
}

// AddCommentsCount adds delta to a post's comment counter
func (r *PostRepository) AddCommentsCount(ctx context.Context, id string, delta int) error {
	return r.addToCounter(ctx, &models.Post{}, id, "comments_count", delta)
}

// AddReaction adds delta to a post's counter of the given reaction kind
func (r *PostRepository) AddReaction(ctx context.Context, id string, kind models.ReactionType, delta int) error {
	column, ok := models.ReactionColumn(kind)
	if !ok {
		return fmt.Errorf("unknown reaction kind %q", kind)
	}
	return r.addToCounter(ctx, &models.Post{}, id, column, delta)
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// Create inserts a comment. It reports false when the comment already existed.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) (bool, error) {
	return r.insertIgnore(ctx, comment)
}

// Delete removes one comment of a post. It reports whether a row was deleted.
func (r *CommentRepository) Delete(ctx context.Context, postID, commentID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND post_id = ?", commentID, postID).Delete(&models.Comment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteByPost removes every comment of a post
func (r *CommentRepository) DeleteByPost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{}).Error
}

// ListForPost returns the comments of a post, newest first
func (r *CommentRepository) ListForPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// GetByID retrieves one comment of a post
func (r *CommentRepository) GetByID(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	var comment models.Comment
	found, err := r.first(r.db.WithContext(ctx).Where("id = ? AND post_id = ?", commentID, postID), &comment)
	if err != nil || !found {
		return nil, err
	}
	return &comment, nil
}

// ReactionRepository provides reaction-related database operations
type ReactionRepository struct {
	*Repository
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(repo *Repository) *ReactionRepository {
	return &ReactionRepository{Repository: repo}
}

// Upsert inserts reaction or replaces the existing reaction of the same user on the
// post. The replacing row takes over reaction's id.
func (r *ReactionRepository) Upsert(ctx context.Context, reaction *models.Reaction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"id", "type", "avatar_color", "profile_picture", "user_to", "created_at"}),
		}).
		Create(reaction).Error
}

// GetByUsername retrieves the reaction of username on a post. Usernames match case-insensitively.
func (r *ReactionRepository) GetByUsername(ctx context.Context, postID, username string) (*models.Reaction, error) {
	var reaction models.Reaction
	query := r.db.WithContext(ctx).Where("post_id = ? AND LOWER(username) = LOWER(?)", postID, username)
	found, err := r.first(query, &reaction)
	if err != nil || !found {
		return nil, err
	}
	return &reaction, nil
}

// Delete removes the reaction of username on a post and returns it, or nil when there was none
func (r *ReactionRepository) Delete(ctx context.Context, postID, username string) (*models.Reaction, error) {
	var deleted []models.Reaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("post_id = ? AND LOWER(username) = LOWER(?)", postID, username).
		Delete(&deleted).Error
	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return nil, nil
	}
	return &deleted[0], nil
}

// DeleteByPost removes every reaction on a post
func (r *ReactionRepository) DeleteByPost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Reaction{}).Error
}

// ListForPost returns the reactions on a post, newest first
func (r *ReactionRepository) ListForPost(ctx context.Context, postID string) ([]*models.Reaction, error) {
	var reactions []*models.Reaction
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

// ListByUsername returns every reaction made by username, newest first
func (r *ReactionRepository) ListByUsername(ctx context.Context, username string) ([]*models.Reaction, error) {
	var reactions []*models.Reaction
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		Order("created_at DESC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}
