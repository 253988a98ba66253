package models

import "time"

type Post struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"userId"`
	Content       *string   `gorm:"type:text" json:"content"`
	MediaURL      *string   `gorm:"type:text" json:"mediaUrl"`
	MediaType     *string   `gorm:"type:varchar(50)" json:"mediaType"`
	LikesCount    int       `gorm:"not null;default:0" json:"likesCount"`
	CommentsCount int       `gorm:"not null;default:0" json:"commentsCount"`
	SharesCount   int       `gorm:"not null;default:0" json:"sharesCount"`
	IsActive      bool      `gorm:"default:true;index" json:"isActive"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
