// Package mysql 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，具体实现在 repository 子包中
package mysql

import (
	"time"

	"soullink_server/internal/model"
)

// ==================== Repository 接口定义 ====================

// UserRepository 用户数据访问接口
type UserRepository interface {
	// FindByUuid 根据 UUID 查找用户
	FindByUuid(uuid string) (*model.UserInfo, error)
	// CreateUser 创建新用户
	CreateUser(user *model.UserInfo) error
}

// SessionRepository 会话数据访问接口
// 管理双人聊天会话，参与者对已按字典序归一化
type SessionRepository interface {
	// FindByUuid 根据 UUID 查找会话
	FindByUuid(uuid string) (*model.ChatSession, error)
	// FindByUuidForUpdate 根据 UUID 查找会话并加行锁
	// 仅在事务内调用，用于消息序号分配
	FindByUuidForUpdate(uuid string) (*model.ChatSession, error)
	// FindByPair 根据归一化后的参与者对查找会话
	FindByPair(userOneId, userTwoId string) (*model.ChatSession, error)
	// FindByUser 查找用户参与的所有活跃会话，按最近消息时间倒序
	FindByUser(userId string) ([]model.ChatSession, error)
	// CreateSession 创建新会话
	CreateSession(session *model.ChatSession) error
	// IncrementMessageStats 累加消息计数并刷新最近消息时间
	// 与消息插入在同一事务内调用
	IncrementMessageStats(uuid string, at time.Time) error
	// UpdateOnlineFlag 更新指定参与者槽位的在线标志
	// slotOne 为 true 表示 user_one 槽位；下线时同时刷新离线时间
	UpdateOnlineFlag(uuid string, slotOne bool, online bool, at time.Time) error
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 创建新消息
	Create(message *model.ChatMessage) error
	// FindBySessionDesc 查询会话消息，按序号倒序分页，排除软删除
	FindBySessionDesc(sessionId string, limit, offset int) ([]model.ChatMessage, error)
	// MarkRead 将会话内非 readerId 发送的未读消息标记为已读
	// upToSequence > 0 时仅标记序号不超过该值的消息，返回本次新标记的条数
	MarkRead(sessionId, readerId string, upToSequence int64, at time.Time) (int64, error)
}

// RelationRepository 匹配关系数据访问接口
type RelationRepository interface {
	// FindByUuid 根据 UUID 查找关系
	FindByUuid(uuid string) (*model.MatchRelation, error)
	// FindDue 查找已到调度时间的活跃关系
	FindDue(now time.Time, limit int) ([]model.MatchRelation, error)
	// ClaimDue 占位式领取到期关系：把 next_scheduled_at 推后到 claimUntil
	// 仅当关系仍活跃且仍到期时生效，返回是否领取成功
	ClaimDue(uuid string, now time.Time, claimUntil time.Time) (bool, error)
	// ApplyRoundResult 回合完成后累加分数并推进调度时间
	ApplyRoundResult(uuid string, loveDelta, friendshipDelta float64, completedAt, nextAt time.Time) error
	// CreateRelation 创建新关系
	CreateRelation(relation *model.MatchRelation) error
}

// AgentRepository 市场代理数据访问接口
type AgentRepository interface {
	// FindByUuid 根据 UUID 查找代理
	FindByUuid(uuid string) (*model.MarketAgent, error)
	// TouchInteraction 刷新代理的最近互动时间
	TouchInteraction(uuid string, at time.Time) error
	// CreateAgent 创建新代理
	CreateAgent(agent *model.MarketAgent) error
}

// PersonaRepository 数字人格数据访问接口
type PersonaRepository interface {
	// FindByUuid 根据 UUID 查找人格
	FindByUuid(uuid string) (*model.DigitalPersona, error)
	// CreatePersona 创建新人格
	CreatePersona(persona *model.DigitalPersona) error
}

// ScenarioRepository 对话场景数据访问接口
type ScenarioRepository interface {
	// FindByUuid 根据 UUID 查找场景
	FindByUuid(uuid string) (*model.Scenario, error)
	// FindActive 查找所有启用中的场景
	FindActive() ([]model.Scenario, error)
	// CreateScenario 创建新场景
	CreateScenario(scenario *model.Scenario) error
}

// ConversationRepository 自动对话回合数据访问接口
type ConversationRepository interface {
	// FindByUuid 根据 UUID 查找回合
	FindByUuid(uuid string) (*model.AutoConversation, error)
	// CreateConversation 创建新回合
	CreateConversation(conv *model.AutoConversation) error
	// UpdateByUuid 按 UUID 更新回合字段
	UpdateByUuid(uuid string, updates map[string]interface{}) error
	// CreateMessage 追加回合消息
	CreateMessage(msg *model.AutoConversationMessage) error
	// FindRecentMessages 查询回合内最近的若干条消息，按序号升序返回
	FindRecentMessages(conversationUuid string, limit int) ([]model.AutoConversationMessage, error)
}

// EvaluationRepository 匹配评估数据访问接口
type EvaluationRepository interface {
	// CreateEvaluation 创建评估记录
	CreateEvaluation(eval *model.MatchEvaluation) error
	// FindByConversation 查询回合内的所有评估
	FindByConversation(conversationUuid string) ([]model.MatchEvaluation, error)
}
