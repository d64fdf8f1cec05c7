package models

import (
	"time"

	"gorm.io/gorm"
)

// Privacy values accepted for a post
const (
	PrivacyPublic    = "Public"
	PrivacyPrivate   = "Private"
	PrivacyFollowers = "Followers"
)

// Post represents a user post. The same struct is the cache projection and the
// queue payload; Reactions is stored in one column per kind.
type Post struct {
	ID             string    `gorm:"primaryKey;type:varchar(24);column:id" json:"_id"`
	UserID         string    `gorm:"type:varchar(24);not null;index;column:user_id" json:"userId"`
	Username       string    `gorm:"type:varchar(32);not null;column:username" json:"username"`
	Email          string    `gorm:"type:varchar(255);not null;column:email" json:"email"`
	AvatarColor    string    `gorm:"type:varchar(16);not null;default:'';column:avatar_color" json:"avatarColor"`
	ProfilePicture string    `gorm:"type:varchar(1024);not null;default:'';column:profile_picture" json:"profilePicture"`
	Body           string    `gorm:"type:text;not null;default:'';column:post" json:"post"`
	BgColor        string    `gorm:"type:varchar(16);not null;default:'';column:bg_color" json:"bgColor"`
	Feelings       string    `gorm:"type:varchar(32);not null;default:'';column:feelings" json:"feelings"`
	Privacy        string    `gorm:"type:varchar(16);not null;default:'Public';column:privacy" json:"privacy"`
	GifURL         string    `gorm:"type:varchar(1024);not null;default:'';column:gif_url" json:"gifUrl"`
	ImgVersion     string    `gorm:"type:varchar(32);not null;default:'';column:img_version" json:"imgVersion"`
	ImgID          string    `gorm:"type:varchar(255);not null;default:'';column:img_id" json:"imgId"`
	CommentsCount  int       `gorm:"not null;default:0;column:comments_count" json:"commentsCount"`
	Reactions      Reactions `gorm:"-" json:"reactions"`
	CreatedAt      time.Time `gorm:"not null;index;column:created_at" json:"createdAt"`

	Counters ReactionCounters `gorm:"embedded;embeddedPrefix:reaction_" json:"-"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// HasMedia reports whether the post carries an uploaded image or a gif
func (p *Post) HasMedia() bool {
	return (p.ImgID != "" && p.ImgVersion != "") || p.GifURL != ""
}

// BeforeSave copies the reaction map into the counter columns
func (p *Post) BeforeSave(tx *gorm.DB) error {
	if p.Reactions != nil {
		p.Counters = CountersFromMap(p.Reactions)
	}
	return nil
}

// AfterFind rebuilds the reaction map from the counter columns
func (p *Post) AfterFind(tx *gorm.DB) error {
	p.Reactions = p.Counters.Map()
	return nil
}

// PostUpdate carries the editable fields of a post. Nil fields are left untouched.
type PostUpdate struct {
	Body           *string
	BgColor        *string
	Feelings       *string
	Privacy        *string
	GifURL         *string
	ProfilePicture *string
	ImgVersion     *string
	ImgID          *string
}
