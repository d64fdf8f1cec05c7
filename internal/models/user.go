package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gorm.io/datatypes"
)

// AuthUser holds the credentials of an account. It travels through the auth queue
// with the bcrypt hash and is never rendered by the API.
type AuthUser struct {
	ID                   string     `gorm:"primaryKey;type:varchar(24);column:id" json:"_id"`
	UID                  string     `gorm:"type:varchar(16);not null;uniqueIndex;column:uid" json:"uId"`
	Username             string     `gorm:"type:varchar(32);not null;uniqueIndex;column:username" json:"username"`
	Email                string     `gorm:"type:varchar(255);not null;uniqueIndex;column:email" json:"email"`
	Password             string     `gorm:"type:varchar(255);not null;column:password" json:"password"`
	AvatarColor          string     `gorm:"type:varchar(16);not null;default:'';column:avatar_color" json:"avatarColor"`
	PasswordResetToken   string     `gorm:"type:varchar(64);not null;default:'';index;column:password_reset_token" json:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `gorm:"column:password_reset_expires" json:"passwordResetExpires,omitempty"`
	CreatedAt            time.Time  `gorm:"not null;column:created_at" json:"createdAt"`
}

// TableName specifies the table name for AuthUser
func (AuthUser) TableName() string {
	return "auth_users"
}

// NotificationSettings are the per-user notification toggles
type NotificationSettings struct {
	Messages  bool `json:"messages"`
	Reactions bool `json:"reactions"`
	Comments  bool `json:"comments"`
	Follows   bool `json:"follows"`
}

// DefaultNotificationSettings enables every notification
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{Messages: true, Reactions: true, Comments: true, Follows: true}
}

// SocialLinks are the profile's external links
type SocialLinks struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
	Youtube   string `json:"youtube"`
}

// User is the profile of an account. UID, Username, Email and AvatarColor live on
// AuthUser and are only read through a join.
type User struct {
	ID             string                                   `gorm:"primaryKey;type:varchar(24);column:id" json:"_id"`
	AuthID         string                                   `gorm:"type:varchar(24);not null;uniqueIndex;column:auth_id" json:"authId"`
	UID            string                                   `gorm:"->;-:migration;column:uid" json:"uId"`
	Username       string                                   `gorm:"->;-:migration;column:username" json:"username"`
	Email          string                                   `gorm:"->;-:migration;column:email" json:"email"`
	AvatarColor    string                                   `gorm:"->;-:migration;column:avatar_color" json:"avatarColor"`
	ProfilePicture string                                   `gorm:"type:varchar(1024);not null;default:'';column:profile_picture" json:"profilePicture"`
	PostsCount     int                                      `gorm:"not null;default:0;column:posts_count" json:"postsCount"`
	FollowersCount int                                      `gorm:"not null;default:0;column:followers_count" json:"followersCount"`
	FollowingCount int                                      `gorm:"not null;default:0;column:following_count" json:"followingCount"`
	Blocked        datatypes.JSONSlice[string]              `gorm:"column:blocked" json:"blocked"`
	BlockedBy      datatypes.JSONSlice[string]              `gorm:"column:blocked_by" json:"blockedBy"`
	Notifications  datatypes.JSONType[NotificationSettings] `gorm:"column:notifications" json:"notifications"`
	Social         datatypes.JSONType[SocialLinks]          `gorm:"column:social" json:"social"`
	Work           string                                   `gorm:"type:varchar(255);not null;default:'';column:work" json:"work"`
	Location       string                                   `gorm:"type:varchar(255);not null;default:'';column:location" json:"location"`
	School         string                                   `gorm:"type:varchar(255);not null;default:'';column:school" json:"school"`
	Quote          string                                   `gorm:"type:varchar(255);not null;default:'';column:quote" json:"quote"`
	BgImageVersion string                                   `gorm:"type:varchar(32);not null;default:'';column:bg_image_version" json:"bgImageVersion"`
	BgImageID      string                                   `gorm:"type:varchar(255);not null;default:'';column:bg_image_id" json:"bgImageId"`
	CreatedAt      time.Time                                `gorm:"not null;column:created_at" json:"createdAt"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// FirstLetterUppercase normalizes a username: first letter upper case, rest lower case
func FirstLetterUppercase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
