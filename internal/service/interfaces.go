// Package service 定义业务层接口
// 本文件定义 Handler 层依赖的 Service 接口
package service

import (
	"soullink_server/internal/dto/request"
	"soullink_server/internal/dto/respond"
	"soullink_server/internal/model"
)

// SessionService 会话业务接口
// 处理双人聊天会话的建立、消息、已读与在线状态
type SessionService interface {
	// OpenSession 打开会话，已存在则复用
	OpenSession(req request.OpenSessionRequest) (string, error)
	// GetSession 获取会话并校验调用方为参与者
	GetSession(sessionId, userId string) (*model.ChatSession, error)
	// AppendMessage 追加一条消息并分配会话内序号
	AppendMessage(sessionId, senderId, content, msgType string) (*respond.ChatMessageRespond, error)
	// GetMessageList 分页获取会话消息，按序号升序
	GetMessageList(req request.GetMessageListRequest) ([]respond.ChatMessageRespond, error)
	// MarkRead 把对方发来的未读消息标记为已读，返回新标记条数
	MarkRead(req request.MarkReadRequest) (int64, error)
	// SetOnline 更新参与者的在线标志
	SetOnline(sessionId, userId string, online bool)
	// GetSessionList 获取用户的活跃会话列表
	GetSessionList(userId string) ([]respond.SessionListRespond, error)
}
