package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User 用户模型
type User struct {
	ID               uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Username         string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email            string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password         string          `gorm:"not null" json:"-"`
	DisplayName      string          `gorm:"type:varchar(100)" json:"displayName"`
	Bio              string          `gorm:"type:text" json:"bio"`
	Avatar           string          `gorm:"type:text" json:"avatar"`
	IsVerified       bool            `gorm:"default:false" json:"isVerified"`
	IsPremium        bool            `gorm:"default:false" json:"isPremium"`
	PremiumExpiresAt *time.Time      `json:"premiumExpiresAt"`
	WalletBalance    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"walletBalance"`
	FollowersCount   int             `gorm:"not null;default:0" json:"followersCount"`
	FollowingCount   int             `gorm:"not null;default:0" json:"followingCount"`
	PostsCount       int             `gorm:"not null;default:0" json:"postsCount"`
	IsActive         bool            `gorm:"default:true" json:"isActive"`
	IsBanned         bool            `gorm:"default:false" json:"isBanned"`
	BannedUntil      *time.Time      `json:"bannedUntil"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// UserSummary is the public card shown in follower lists and participant lists.
type UserSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	IsVerified  bool   `json:"isVerified"`
}

// Summary 只保留公开字段
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		IsVerified:  u.IsVerified,
	}
}

// PublicProfile is what other users see; email and wallet stay private.
type PublicProfile struct {
	UserSummary
	Bio            string    `json:"bio"`
	IsPremium      bool      `json:"isPremium"`
	FollowersCount int       `json:"followersCount"`
	FollowingCount int       `json:"followingCount"`
	PostsCount     int       `json:"postsCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{
		UserSummary:    u.Summary(),
		Bio:            u.Bio,
		IsPremium:      u.IsPremium,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		PostsCount:     u.PostsCount,
		CreatedAt:      u.CreatedAt,
	}
}
