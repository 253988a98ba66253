package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"social-hub/middlewares"
	"social-hub/utils"
)

type amountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (ctl *Controller) WalletBalance(c *gin.Context) {
	balance, err := ctl.store.Balance(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, gin.H{"balance": balance}, nil)
}

func (ctl *Controller) WalletTransactions(c *gin.Context) {
	limit, offset := pageParams(c)
	rows, err := ctl.store.WalletTransactions(c.Request.Context(), middlewares.CurrentUserID(c), limit, offset)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, rows, gin.H{"limit": limit, "offset": offset})
}

// Deposit 充值
func (ctl *Controller) Deposit(c *gin.Context) {
	var input amountRequest
	if !bindJSON(c, &input) {
		return
	}
	if input.Description == "" {
		input.Description = "Wallet deposit"
	}
	row, err := ctl.store.Deposit(c.Request.Context(), middlewares.CurrentUserID(c), input.Amount, input.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, row)
}

// Withdraw 提现
func (ctl *Controller) Withdraw(c *gin.Context) {
	var input amountRequest
	if !bindJSON(c, &input) {
		return
	}
	if input.Description == "" {
		input.Description = "Wallet withdrawal"
	}
	row, err := ctl.store.Withdraw(c.Request.Context(), middlewares.CurrentUserID(c), input.Amount, input.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, row)
}

func (ctl *Controller) Transfer(c *gin.Context) {
	var input struct {
		amountRequest
		RecipientID uint `json:"recipientId" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}
	row, err := ctl.store.Transfer(c.Request.Context(), middlewares.CurrentUserID(c), input.RecipientID, input.Amount, input.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, row)
}
