// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
// 遵循依赖倒置原则，通过构造函数注入 Service 依赖
package handler

import (
	"soullink_server/internal/service"
	"soullink_server/internal/service/chat"
	"soullink_server/internal/service/scheduler"
	"soullink_server/internal/service/task"
)

// Handlers 聚合所有 Handler 实例
// 作为依赖注入的入口，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Session *SessionHandler
	Message *MessageHandler
	Ws      *WsHandler
	Match   *MatchHandler
	Task    *TaskHandler
}

// NewHandlers 创建并注入所有 Handler 实例
// svc: Service 层聚合实例
// hub/broker: 实时扇出组件
// sched/registry: 调度与任务组件
func NewHandlers(svc *service.Services, hub *chat.Hub, broker chat.EventBroker, sched *scheduler.Scheduler, registry *task.Registry) *Handlers {
	return &Handlers{
		Session: NewSessionHandler(svc.Session),
		Message: NewMessageHandler(svc.Session),
		Ws:      NewWsHandler(svc.Session, hub, broker),
		Match:   NewMatchHandler(sched),
		Task:    NewTaskHandler(registry),
	}
}
