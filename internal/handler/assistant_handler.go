package handler

import (
	"ent-messaging-go/internal/service"

	"github.com/gin-gonic/gin"
)

// AssistantHandler 负责 AI 助手问答请求。
type AssistantHandler struct {
	assistantService service.AssistantService
}

// NewAssistantHandler 创建一个新的 AssistantHandler 实例。
func NewAssistantHandler(assistantService service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistantService: assistantService}
}

// ChatRequest 定义了问答 API 的请求体结构。
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// Chat 把问题转发给本地补全服务并返回回复。
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载")
		return
	}
	reply, err := h.assistantService.Chat(c.Request.Context(), req.Message, req.ConversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "success", reply)
}
