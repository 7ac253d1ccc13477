package models

import "time"

// Post represents a recipe published by a user.
type Post struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       uint        `gorm:"index;not null" json:"user_id"`
	Title        string      `gorm:"size:255;not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	Ingredients  string      `gorm:"type:text;not null" json:"ingredients"`
	Instructions string      `gorm:"type:text;not null" json:"instructions"`
	CookingTime  int         `json:"cooking_time"` // minutes
	Servings     int         `json:"servings"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	User         User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Images       []PostImage `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images"`
	Comments     []Comment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}

// MainImage returns the post's main image path, or the empty string.
func (p *Post) MainImage() string {
	for _, img := range p.Images {
		if img.IsMain {
			return img.ImagePath
		}
	}
	return ""
}
