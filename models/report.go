package models

import "time"

const ReportStatusPending = "pending"

type Report struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ReporterID     uint       `gorm:"not null;index" json:"reporterId"`
	ReportedUserID *uint      `gorm:"index" json:"reportedUserId"`
	ReportedPostID *uint      `gorm:"index" json:"reportedPostId"`
	Reason         string     `gorm:"type:varchar(100);not null" json:"reason"`
	Description    *string    `gorm:"type:text" json:"description"`
	Status         string     `gorm:"type:varchar(50);default:'pending'" json:"status"`
	AdminNotes     *string    `gorm:"type:text" json:"adminNotes"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReviewedAt     *time.Time `json:"reviewedAt"`

	Reporter     *User `gorm:"foreignKey:ReporterID;constraint:OnDelete:CASCADE" json:"-"`
	ReportedUser *User `gorm:"foreignKey:ReportedUserID;constraint:OnDelete:CASCADE" json:"-"`
	ReportedPost *Post `gorm:"foreignKey:ReportedPostID;constraint:OnDelete:CASCADE" json:"-"`
}
