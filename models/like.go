package models

import "time"

// Like targets either a post or a comment, never both.
type Like struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_like_user_post,priority:1;index:idx_like_user_comment,priority:1" json:"userId"`
	PostID    *uint     `gorm:"index:idx_like_user_post,priority:2" json:"postId"`
	CommentID *uint     `gorm:"index:idx_like_user_comment,priority:2" json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`

	User    *User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Post    *Post    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comment *Comment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
