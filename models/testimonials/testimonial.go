package testimonials

import (
	"time"

	"gorm.io/gorm"
)

type Testimonial struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"size:100;not null" json:"name"`
	Role       string         `gorm:"size:100" json:"role"`
	Company    string         `gorm:"size:100" json:"company"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	ImagePath  string         `gorm:"size:255" json:"image_path"`
	VideoPath  string         `gorm:"size:255" json:"video_path"`
	Rating     int            `json:"rating"` // optional, 1-5
	IsFeatured bool           `gorm:"default:false" json:"is_featured"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
