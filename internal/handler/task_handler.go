// Package handler 提供 HTTP 请求处理器
// 本文件处理异步任务查询相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"soullink_server/internal/dto/respond"
	"soullink_server/internal/service/task"
	"soullink_server/pkg/errorx"
)

// TaskHandler 任务请求处理器
type TaskHandler struct {
	registry *task.Registry
}

// NewTaskHandler 创建 TaskHandler 实例
func NewTaskHandler(registry *task.Registry) *TaskHandler {
	return &TaskHandler{registry: registry}
}

// GetTask 查询任务状态
// GET /task/:task_id
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskId := c.Param("task_id")
	record, ok := h.registry.Get(taskId)
	if !ok {
		HandleError(c, errorx.Newf(errorx.CodeNotFound, "任务 %s 不存在", taskId))
		return
	}
	HandleSuccess(c, toTaskRespond(record))
}

// toTaskRespond 把注册表记录转换为响应结构
func toTaskRespond(record task.Record) respond.TaskRespond {
	rsp := respond.TaskRespond{
		TaskId:    record.TaskId,
		Kind:      record.Type,
		Status:    record.Status,
		Progress:  record.Progress,
		Metadata:  record.Metadata,
		Result:    record.Result,
		Error:     record.Error,
		CreatedAt: record.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if !record.StartedAt.IsZero() {
		rsp.StartedAt = record.StartedAt.Format("2006-01-02 15:04:05")
	}
	if !record.CompletedAt.IsZero() {
		rsp.CompletedAt = record.CompletedAt.Format("2006-01-02 15:04:05")
	}
	return rsp
}
