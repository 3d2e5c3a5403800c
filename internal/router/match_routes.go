// Package router 提供 HTTP 路由注册
// 本文件定义自动对话触发与任务查询相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMatchRoutes 注册匹配与任务相关路由
func (rt *Router) RegisterMatchRoutes(rg *gin.RouterGroup) {
	matchGroup := rg.Group("/match")
	{
		matchGroup.POST("/trigger", rt.handlers.Match.TriggerRound) // 立即触发自动对话回合
	}

	rg.GET("/task/:task_id", rt.handlers.Task.GetTask)                 // 查询任务状态
	rg.GET("/scheduler/status", rt.handlers.Match.SchedulerStatus)     // 查询调度器状态
}
