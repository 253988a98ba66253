package controllers

import (
	"github.com/gin-gonic/gin"

	"social-hub/middlewares"
	"social-hub/services"
	"social-hub/utils"
)

// SendMessage 发送消息：与 WebSocket 走同一条路径，只持久化并推送一次
func (ctl *Controller) SendMessage(c *gin.Context) {
	var input struct {
		ConversationID uint `json:"conversationId" binding:"required"`
		services.MediaInput
	}
	if !bindJSON(c, &input) {
		return
	}
	msg, err := ctl.hub.Send(c.Request.Context(), services.SendMessageInput{
		ConversationID: input.ConversationID,
		SenderID:       middlewares.CurrentUserID(c),
		MediaInput:     input.MediaInput,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, msg)
}

// GetMessagesByConversationID 获取会话消息（仅成员可见，按时间正序）
func (ctl *Controller) GetMessagesByConversationID(c *gin.Context) {
	id, ok := idParam(c, "conversationId")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	msgs, err := ctl.store.ConversationMessages(c.Request.Context(), middlewares.CurrentUserID(c), id, limit, offset)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, msgs, gin.H{"limit": limit, "offset": offset})
}

// MarkRead 把会话中他人发送的未读消息标记为已读
func (ctl *Controller) MarkRead(c *gin.Context) {
	id, ok := idParam(c, "conversationId")
	if !ok {
		return
	}
	n, err := ctl.store.MarkConversationRead(c.Request.Context(), middlewares.CurrentUserID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, gin.H{"updated": n}, nil)
}
