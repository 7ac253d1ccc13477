package models

import "time"

// PostImage records an uploaded image attached to a post. At most one image
// per post carries the main flag; the application demotes the old main image
// when a new one is promoted.
type PostImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	ImagePath string    `gorm:"size:1024;not null" json:"image_path"`
	IsMain    bool      `gorm:"default:false" json:"is_main"`
	CreatedAt time.Time `json:"created_at"`
}
