package models

import "time"

// ConversationParticipant 会话成员；LeftAt 为空表示仍在会话中
type ConversationParticipant struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint       `gorm:"not null;index:idx_participant_conv_user,priority:1" json:"conversationId"`
	UserID         uint       `gorm:"not null;index:idx_participant_conv_user,priority:2;index" json:"userId"`
	JoinedAt       time.Time  `gorm:"autoCreateTime" json:"joinedAt"`
	LeftAt         *time.Time `json:"leftAt"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Active reports whether the participant has not left the conversation.
func (p *ConversationParticipant) Active() bool {
	return p.LeftAt == nil
}
