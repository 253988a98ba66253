package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-hub/middlewares"
	"social-hub/utils"
)

// GetConversation 当前用户的会话列表，按最近活跃排序
func (ctl *Controller) GetConversation(c *gin.Context) {
	convs, err := ctl.store.UserConversations(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, convs, nil)
}

// CreateConversationHandler 创建会话：participantId 为私聊（已存在则直接返回），participantIds 为群聊
func (ctl *Controller) CreateConversationHandler(c *gin.Context) {
	var input struct {
		ParticipantID  uint   `json:"participantId"`
		ParticipantIDs []uint `json:"participantIds"`
		Name           string `json:"name"`
	}
	if !bindJSON(c, &input) {
		return
	}
	userID := middlewares.CurrentUserID(c)
	ctx := c.Request.Context()

	if len(input.ParticipantIDs) > 0 {
		conv, err := ctl.store.CreateGroupConversation(ctx, userID, input.Name, input.ParticipantIDs)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.RespondCreated(c, conv)
		return
	}

	if input.ParticipantID == 0 {
		utils.RespondBadRequest(c, "participantId or participantIds is required")
		return
	}
	conv, created, err := ctl.store.GetOrCreateDirectConversation(ctx, userID, input.ParticipantID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if created {
		utils.RespondCreated(c, conv)
		return
	}
	c.JSON(http.StatusOK, utils.Response{Code: 0, Message: "success", Data: conv})
}

func (ctl *Controller) LeaveConversation(c *gin.Context) {
	id, ok := idParam(c, "conversationId")
	if !ok {
		return
	}
	if err := ctl.store.LeaveConversation(c.Request.Context(), middlewares.CurrentUserID(c), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, gin.H{"left": true}, nil)
}
