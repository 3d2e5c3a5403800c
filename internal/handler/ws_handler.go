// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接相关的 API 请求
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ws "soullink_server/internal/gateway/websocket"
	"soullink_server/internal/service"
	"soullink_server/internal/service/chat"
	"soullink_server/pkg/errorx"
)

// WsHandler WebSocket 接入处理器
type WsHandler struct {
	sessionService service.SessionService
	hub            *chat.Hub
	broker         chat.EventBroker
}

// NewWsHandler 创建 WsHandler 实例
func NewWsHandler(sessionService service.SessionService, hub *chat.Hub, broker chat.EventBroker) *WsHandler {
	return &WsHandler{
		sessionService: sessionService,
		hub:            hub,
		broker:         broker,
	}
}

// Connect 建立会话内的 WebSocket 连接
// GET /ws/chat?session_id=xxx&user_id=xxx
// 功能:
//   - 校验调用方是会话参与者
//   - 将 HTTP 连接升级为 WebSocket 连接
//   - 注册到扇出中心并启动读写协程
func (h *WsHandler) Connect(c *gin.Context) {
	sessionId := c.Query("session_id")
	userId := c.Query("user_id")
	if sessionId == "" || userId == "" {
		c.JSON(http.StatusOK, gin.H{
			"code": errorx.CodeInvalidParam,
			"msg":  "session_id 和 user_id 不能为空",
		})
		return
	}

	// 升级前先做参与者校验，非参与者不消耗连接资源
	if _, err := h.sessionService.GetSession(sessionId, userId); err != nil {
		HandleError(c, err)
		return
	}

	conn, err := ws.Upgrade(c)
	if err != nil {
		zap.L().Error("WebSocket 升级失败", zap.Error(err))
		return
	}

	client := ws.NewClient(conn, sessionId, userId)
	h.hub.Connect(client)

	go client.WritePump()
	go func() {
		client.ReadPump(func(envelope []byte) {
			if err := h.broker.Publish(context.Background(), envelope); err != nil {
				zap.L().Error("入站事件发布失败", zap.Error(err))
			}
		})
		// 读协程退出说明连接已断开
		h.hub.Disconnect(client)
	}()
}
