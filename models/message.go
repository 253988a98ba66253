package models

import "time"

// Message is immutable once created except for its read state.
type Message struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint       `gorm:"not null;index:idx_message_conv_created,priority:1" json:"conversationId"`
	SenderID       uint       `gorm:"not null;index" json:"senderId"`
	Content        *string    `gorm:"type:text" json:"content"`
	MediaURL       *string    `gorm:"type:text" json:"mediaUrl"`
	MediaType      *string    `gorm:"type:varchar(50)" json:"mediaType"`
	IsRead         bool       `gorm:"default:false" json:"isRead"`
	ReadAt         *time.Time `json:"readAt"`
	CreatedAt      time.Time  `gorm:"index:idx_message_conv_created,priority:2" json:"createdAt"`

	Conversation *Conversation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Sender       *User         `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
}
