// Package handler 提供 HTTP 请求处理器
// 本文件处理消息历史与已读标记相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"soullink_server/internal/dto/request"
	"soullink_server/internal/dto/respond"
	"soullink_server/internal/service"
)

// MessageHandler 消息请求处理器
type MessageHandler struct {
	sessionService service.SessionService
}

// NewMessageHandler 创建 MessageHandler 实例
func NewMessageHandler(sessionService service.SessionService) *MessageHandler {
	return &MessageHandler{sessionService: sessionService}
}

// GetMessageList 分页获取会话消息
// GET /message/list?session_id=xxx&user_id=xxx&limit=50&offset=0
func (h *MessageHandler) GetMessageList(c *gin.Context) {
	var req request.GetMessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	messages, err := h.sessionService.GetMessageList(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	if messages == nil {
		messages = []respond.ChatMessageRespond{}
	}
	HandleSuccess(c, messages)
}

// MarkRead 把对方发来的未读消息标记为已读
// POST /message/markRead
// 请求体: request.MarkReadRequest
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req request.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	count, err := h.sessionService.MarkRead(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"marked_count": count})
}
