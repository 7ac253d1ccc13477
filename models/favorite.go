package models

import "time"

// Favorite is a (user, post) membership row; a user can favorite a post at most once.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_post_fav;not null" json:"user_id"`
	PostID    uint      `gorm:"uniqueIndex:idx_user_post_fav;not null" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedRecipe is the independent "saved" membership relation on a post.
type SavedRecipe struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_post_save;not null" json:"user_id"`
	PostID    uint      `gorm:"uniqueIndex:idx_user_post_save;not null" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
