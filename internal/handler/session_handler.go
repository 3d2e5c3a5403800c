// Package handler 提供 HTTP 请求处理器
// 本文件处理会话相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"soullink_server/internal/dto/request"
	"soullink_server/internal/dto/respond"
	"soullink_server/internal/service"
)

// SessionHandler 会话请求处理器
type SessionHandler struct {
	sessionService service.SessionService
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// OpenSession 打开会话（不存在则创建）
// POST /session/open
// 请求体: request.OpenSessionRequest
func (h *SessionHandler) OpenSession(c *gin.Context) {
	var req request.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	sessionId, err := h.sessionService.OpenSession(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"session_id": sessionId})
}

// GetSessionList 获取用户的会话列表
// GET /session/list?user_id=xxx
func (h *SessionHandler) GetSessionList(c *gin.Context) {
	var req request.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	sessions, err := h.sessionService.GetSessionList(req.UserId)
	if err != nil {
		HandleError(c, err)
		return
	}
	if sessions == nil {
		sessions = []respond.SessionListRespond{}
	}
	HandleSuccess(c, sessions)
}
