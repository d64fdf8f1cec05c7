package models

import (
	"time"
)

// Comment represents a comment on a post. The author fields are a snapshot taken
// when the comment is created.
type Comment struct {
	ID             string    `gorm:"primaryKey;type:varchar(24);column:id" json:"_id"`
	PostID         string    `gorm:"type:varchar(24);not null;index;column:post_id" json:"postId"`
	Username       string    `gorm:"type:varchar(32);not null;column:username" json:"username"`
	AvatarColor    string    `gorm:"type:varchar(16);not null;default:'';column:avatar_color" json:"avatarColor"`
	ProfilePicture string    `gorm:"type:varchar(1024);not null;default:'';column:profile_picture" json:"profilePicture"`
	Body           string    `gorm:"type:text;not null;column:comment" json:"comment"`
	CreatedAt      time.Time `gorm:"not null;index;column:created_at" json:"createdAt"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// CommentNameList is the commenter summary of a post
type CommentNameList struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}
