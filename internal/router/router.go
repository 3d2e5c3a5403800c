// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"github.com/gin-gonic/gin"

	"soullink_server/internal/handler"
)

// Router 路由注册器，持有 Handler 聚合
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由注册器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// 在 http_server.Init() 中调用，按模块分别注册各个路由组
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	root := r.Group("")
	rt.RegisterSessionRoutes(root)   // 会话与消息路由
	rt.RegisterMatchRoutes(root)     // 匹配与任务路由
	rt.RegisterWebSocketRoutes(root) // WebSocket 路由
}
