package models

import "time"

type Comment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID     uint      `gorm:"not null;index" json:"postId"`
	UserID     uint      `gorm:"not null;index" json:"userId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	LikesCount int       `gorm:"not null;default:0" json:"likesCount"`
	IsActive   bool      `gorm:"default:true" json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`

	Post *Post `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
