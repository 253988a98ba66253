package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 钱包流水类型
const (
	TxTypeDeposit  = "deposit"
	TxTypeWithdraw = "withdraw"
	TxTypeTransfer = "transfer"

	TxStatusCompleted = "completed"
)

type WalletTransaction struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"userId"`
	Type        string          `gorm:"type:varchar(50);not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Description *string         `gorm:"type:text" json:"description"`
	ReferenceID *string         `gorm:"type:varchar(255);index" json:"referenceId"`
	Status      string          `gorm:"type:varchar(50);default:'completed'" json:"status"`
	CreatedAt   time.Time       `gorm:"index" json:"createdAt"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
