package models

import "time"

// StoryLifetime 快拍有效期
const StoryLifetime = 24 * time.Hour

type Story struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"userId"`
	Content         *string   `gorm:"type:text" json:"content"`
	MediaURL        *string   `gorm:"type:text" json:"mediaUrl"`
	MediaType       *string   `gorm:"type:varchar(50)" json:"mediaType"`
	BackgroundColor *string   `gorm:"type:varchar(7)" json:"backgroundColor"`
	ViewsCount      int       `gorm:"not null;default:0" json:"viewsCount"`
	IsActive        bool      `gorm:"default:true;index" json:"isActive"`
	ExpiresAt       time.Time `gorm:"not null;index" json:"expiresAt"`
	CreatedAt       time.Time `json:"createdAt"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type StoryView struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	StoryID  uint      `gorm:"not null;uniqueIndex:uk_story_viewer,priority:1" json:"storyId"`
	ViewerID uint      `gorm:"not null;uniqueIndex:uk_story_viewer,priority:2" json:"viewerId"`
	ViewedAt time.Time `gorm:"autoCreateTime" json:"viewedAt"`

	Story  *Story `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Viewer *User  `gorm:"foreignKey:ViewerID;constraint:OnDelete:CASCADE" json:"-"`
}
