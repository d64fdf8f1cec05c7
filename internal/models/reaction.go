package models

import (
	"time"
)

// ReactionType is one of the fixed reaction kinds
type ReactionType string

// Reaction kinds
const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionHaha  ReactionType = "haha"
	ReactionWow   ReactionType = "wow"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
)

// ReactionTypes lists every reaction kind in display order
var ReactionTypes = []ReactionType{
	ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry,
}

// Valid reports whether t is a known reaction kind
func (t ReactionType) Valid() bool {
	for _, known := range ReactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Reactions maps a reaction kind to its count on a post
type Reactions map[ReactionType]int

// NewReactions returns a counter map with every kind at zero
func NewReactions() Reactions {
	r := make(Reactions, len(ReactionTypes))
	for _, t := range ReactionTypes {
		r[t] = 0
	}
	return r
}

// Increment adds one to kind t
func (r Reactions) Increment(t ReactionType) {
	r[t]++
}

// Decrement removes one from kind t without going below zero
func (r Reactions) Decrement(t ReactionType) {
	if r[t] > 0 {
		r[t]--
	}
}

// Total returns the sum of all counters
func (r Reactions) Total() int {
	total := 0
	for _, n := range r {
		total += n
	}
	return total
}

// Clone returns a copy of r
func (r Reactions) Clone() Reactions {
	c := make(Reactions, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// ReactionCounters is the column layout of Reactions in the posts table
type ReactionCounters struct {
	Like  int `gorm:"not null;default:0;column:like"`
	Love  int `gorm:"not null;default:0;column:love"`
	Haha  int `gorm:"not null;default:0;column:haha"`
	Wow   int `gorm:"not null;default:0;column:wow"`
	Sad   int `gorm:"not null;default:0;column:sad"`
	Angry int `gorm:"not null;default:0;column:angry"`
}

// Map converts column counters to a Reactions map
func (c ReactionCounters) Map() Reactions {
	return Reactions{
		ReactionLike:  c.Like,
		ReactionLove:  c.Love,
		ReactionHaha:  c.Haha,
		ReactionWow:   c.Wow,
		ReactionSad:   c.Sad,
		ReactionAngry: c.Angry,
	}
}

// CountersFromMap converts a Reactions map to column counters
func CountersFromMap(r Reactions) ReactionCounters {
	return ReactionCounters{
		Like:  r[ReactionLike],
		Love:  r[ReactionLove],
		Haha:  r[ReactionHaha],
		Wow:   r[ReactionWow],
		Sad:   r[ReactionSad],
		Angry: r[ReactionAngry],
	}
}

// ReactionColumn returns the posts table column holding the counter of kind t
func ReactionColumn(t ReactionType) (string, bool) {
	if !t.Valid() {
		return "", false
	}
	return "reaction_" + string(t), true
}

// Reaction is one user's reaction on a post
type Reaction struct {
	ID             string       `gorm:"primaryKey;type:varchar(24);column:id" json:"_id"`
	PostID         string       `gorm:"type:varchar(24);not null;uniqueIndex:reactions_post_user_ux,priority:1;column:post_id" json:"postId"`
	Type           ReactionType `gorm:"type:varchar(8);not null;column:type" json:"type"`
	Username       string       `gorm:"type:varchar(32);not null;uniqueIndex:reactions_post_user_ux,priority:2;index;column:username" json:"username"`
	AvatarColor    string       `gorm:"type:varchar(16);not null;default:'';column:avatar_color" json:"avatarColor"`
	ProfilePicture string       `gorm:"type:varchar(1024);not null;default:'';column:profile_picture" json:"profilePicture"`
	UserTo         string       `gorm:"type:varchar(24);not null;default:'';column:user_to" json:"userTo"`
	CreatedAt      time.Time    `gorm:"not null;column:created_at" json:"createdAt"`
}

// TableName specifies the table name for Reaction
func (Reaction) TableName() string {
	return "reactions"
}
