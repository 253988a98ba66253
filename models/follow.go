package models

import "time"

type Follow struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:uk_follow_pair,priority:1" json:"followerId"`
	FollowingID uint      `gorm:"not null;uniqueIndex:uk_follow_pair,priority:2;index" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`

	Follower  *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Following *User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`
}
