package handler

import (
	"strconv"

	"ent-messaging-go/internal/middleware"
	"ent-messaging-go/internal/service"
	"ent-messaging-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了消息搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchConversation 在单个会话内全文检索消息。
func (h *SearchHandler) SearchConversation(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil {
		size = 0
	}
	id, _ := middleware.CurrentIdentity(c)
	log.Debugf("[SearchHandler] 会话 %d 搜索请求, user: %s", conversationID, id.UserID)

	hits, err := h.searchService.SearchConversation(c.Request.Context(), conversationID, id.UserID, c.Query("q"), size)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "success", hits)
}
