package models

import "time"

type Conversation struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IsGroup       bool      `gorm:"default:false;index" json:"isGroup"`
	Name          *string   `gorm:"type:varchar(100)" json:"name"`
	LastMessageID *uint     `json:"lastMessageId"`
	LastActivity  time.Time `gorm:"index" json:"lastActivity"`
	CreatedAt     time.Time `json:"createdAt"`

	Participants []ConversationParticipant `gorm:"constraint:OnDelete:CASCADE" json:"participants,omitempty"`
}
