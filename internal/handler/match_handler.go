// Package handler 提供 HTTP 请求处理器
// 本文件处理自动对话触发与调度器状态相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"soullink_server/internal/dto/request"
	"soullink_server/internal/dto/respond"
	"soullink_server/internal/service/scheduler"
)

// MatchHandler 匹配请求处理器
type MatchHandler struct {
	scheduler *scheduler.Scheduler
}

// NewMatchHandler 创建 MatchHandler 实例
func NewMatchHandler(sched *scheduler.Scheduler) *MatchHandler {
	return &MatchHandler{scheduler: sched}
}

// TriggerRound 立即触发一条关系的自动对话回合
// POST /match/trigger
// 请求体: request.TriggerRoundRequest
// 回合异步执行，返回任务 ID 供轮询
func (h *MatchHandler) TriggerRound(c *gin.Context) {
	var req request.TriggerRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	taskId, err := h.scheduler.TriggerNow(req.RelationId, req.MaxTurns)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.TriggerRoundRespond{TaskId: taskId})
}

// SchedulerStatus 查询调度器运行状态
// GET /scheduler/status
func (h *MatchHandler) SchedulerStatus(c *gin.Context) {
	HandleSuccess(c, respond.SchedulerStatusRespond{
		Running:      h.scheduler.Running(),
		PollInterval: int(h.scheduler.PollInterval().Seconds()),
	})
}
