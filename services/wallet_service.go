package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"social-hub/models"
)

// Ledger amounts are signed: credits positive, debits negative, so the sum
// of a user's rows equals their balance.

var maxAmount = decimal.RequireFromString("99999999.99")

func validAmount(amount decimal.Decimal, field string) error {
	if !amount.IsPositive() {
		return invalidf("%s must be greater than zero", field)
	}
	if !amount.Equal(amount.Round(2)) {
		return invalidf("%s must have at most two decimal places", field)
	}
	if amount.GreaterThan(maxAmount) {
		return invalidf("%s is too large", field)
	}
	return nil
}

func (s *Store) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.WalletBalance, nil
}

func (s *Store) Deposit(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*models.WalletTransaction, error) {
	if err := validAmount(amount, "amount"); err != nil {
		return nil, err
	}
	var entry *models.WalletTransaction
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := credit(tx, userID, amount); err != nil {
			return err
		}
		entry = ledgerRow(userID, models.TxTypeDeposit, amount, description, nil)
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Withdraw 提现，余额不足返回 ErrInsufficientFunds
func (s *Store) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*models.WalletTransaction, error) {
	if err := validAmount(amount, "amount"); err != nil {
		return nil, err
	}
	var entry *models.WalletTransaction
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := debit(tx, userID, amount); err != nil {
			return err
		}
		entry = ledgerRow(userID, models.TxTypeWithdraw, amount.Neg(), description, nil)
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Transfer moves funds between wallets. Both ledger rows share one reference id;
// the sender's row is returned.
func (s *Store) Transfer(ctx context.Context, fromID, toID uint, amount decimal.Decimal, description string) (*models.WalletTransaction, error) {
	if fromID == toID {
		return nil, invalidf("cannot transfer to yourself")
	}
	if err := validAmount(amount, "amount"); err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, toID); err != nil {
		return nil, err
	}

	ref := uuid.NewString()
	var out *models.WalletTransaction
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := debit(tx, fromID, amount); err != nil {
			return err
		}
		if err := credit(tx, toID, amount); err != nil {
			return err
		}
		out = ledgerRow(fromID, models.TxTypeTransfer, amount.Neg(), description, &ref)
		in := ledgerRow(toID, models.TxTypeTransfer, amount, description, &ref)
		return tx.Create([]*models.WalletTransaction{out, in}).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) WalletTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.WalletTransaction, error) {
	limit, offset = page(limit, offset)
	var rows []models.WalletTransaction
	err := s.conn(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, persistence(err)
	}
	return rows, nil
}

func credit(tx *gorm.DB, userID uint, amount decimal.Decimal) error {
	res := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return nil
}

// debit only succeeds while the balance covers the amount.
func debit(tx *gorm.DB, userID uint, amount decimal.Decimal) error {
	res := tx.Model(&models.User{}).Where("id = ? AND wallet_balance >= ?", userID, amount).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: user", ErrNotFound)
		}
		return ErrInsufficientFunds
	}
	return nil
}

func ledgerRow(userID uint, kind string, amount decimal.Decimal, description string, ref *string) *models.WalletTransaction {
	row := &models.WalletTransaction{
		UserID:      userID,
		Type:        kind,
		Amount:      amount,
		ReferenceID: ref,
		Status:      models.TxStatusCompleted,
	}
	row.Description = trimmed(&description)
	return row
}
