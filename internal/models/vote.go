package models

import (
	"time"
)

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// Column returns the Post counter this direction feeds.
func (d VoteDirection) Column() string {
	if d == VoteDown {
		return "downvotes"
	}
	return "upvotes"
}

// Vote is the single record a user holds on a post.
type Vote struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PostID    uint          `gorm:"not null;uniqueIndex:idx_vote_post_user" json:"post_id"`
	Post      Post          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint          `gorm:"not null;uniqueIndex:idx_vote_post_user;index" json:"user_id"`
	Direction VoteDirection `gorm:"size:4;not null" json:"direction"`
	VotedAt   time.Time     `gorm:"not null" json:"voted_at"`
}
