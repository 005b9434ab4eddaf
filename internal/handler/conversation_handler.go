package handler

import (
	"ent-messaging-go/internal/middleware"
	"ent-messaging-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 负责会话与消息相关的 API 请求。
type ConversationHandler struct {
	messagingService service.MessagingService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(messagingService service.MessagingService) *ConversationHandler {
	return &ConversationHandler{messagingService: messagingService}
}

// ListConversations 返回当前用户参与的全部会话。
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	summaries, err := h.messagingService.ListConversations(c.Request.Context(), id.UserID, middleware.CurrentRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "success", summaries)
}

// ListMessages 返回会话中的消息，并把对方发来的消息标记为已读。
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	id, _ := middleware.CurrentIdentity(c)
	messages, err := h.messagingService.ListMessages(c.Request.Context(), conversationID, id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "success", messages)
}

// SendMessageRequest 定义了发送消息 API 的请求体结构。
type SendMessageRequest struct {
	ReceiverID  string `json:"receiver_id" binding:"required"`
	MessageText string `json:"message_text"`
}

// SendMessage 保存消息并推送给在线的接收者。
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载：receiver_id 不能为空")
		return
	}
	id, _ := middleware.CurrentIdentity(c)
	sender := service.Sender{UserID: id.UserID, Role: middleware.CurrentRole(c)}

	msg, err := h.messagingService.SendMessage(c.Request.Context(), sender, req.ReceiverID, req.MessageText)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Message sent", msg)
}
