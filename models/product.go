package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Product struct {
	ID          uint                        `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    uint                        `gorm:"not null;index" json:"sellerId"`
	Title       string                      `gorm:"type:varchar(200);not null" json:"title"`
	Description *string                     `gorm:"type:text" json:"description"`
	Price       decimal.Decimal             `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    *string                     `gorm:"type:varchar(100);index" json:"category"`
	Images      datatypes.JSONSlice[string] `gorm:"type:json" json:"images"`
	Condition   *string                     `gorm:"type:varchar(50)" json:"condition"`
	Location    *string                     `gorm:"type:varchar(200)" json:"location"`
	IsActive    bool                        `gorm:"default:true;index" json:"isActive"`
	IsSold      bool                        `gorm:"default:false" json:"isSold"`
	ViewsCount  int                         `gorm:"not null;default:0" json:"viewsCount"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`

	Seller *User `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"-"`
}
