package models

import "time"

// Reaction types a user may place on a comment.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// CommentReaction stores one reaction per (comment, user) pair. Posting the
// same reaction again removes it; posting the other kind switches it.
type CommentReaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CommentID    uint      `gorm:"uniqueIndex:idx_comment_user;not null" json:"comment_id"`
	UserID       uint      `gorm:"uniqueIndex:idx_comment_user;not null" json:"user_id"`
	ReactionType string    `gorm:"size:16;not null" json:"reaction_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidReaction reports whether s names a supported reaction type.
func ValidReaction(s string) bool {
	return s == ReactionLike || s == ReactionDislike
}
