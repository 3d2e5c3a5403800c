// Package router 提供 HTTP 路由注册
// 本文件定义会话与消息相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterSessionRoutes 注册会话与消息相关路由
func (rt *Router) RegisterSessionRoutes(rg *gin.RouterGroup) {
	sessionGroup := rg.Group("/session")
	{
		sessionGroup.POST("/open", rt.handlers.Session.OpenSession)    // 打开/创建会话
		sessionGroup.GET("/list", rt.handlers.Session.GetSessionList)  // 获取会话列表
	}

	messageGroup := rg.Group("/message")
	{
		messageGroup.GET("/list", rt.handlers.Message.GetMessageList) // 分页获取会话消息
		messageGroup.POST("/markRead", rt.handlers.Message.MarkRead)  // 已读标记
	}
}
