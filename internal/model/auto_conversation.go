// Package model 定义数据库实体模型
// 本文件定义自动对话回合及其消息模型
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// 自动对话回合状态
const (
	ConversationStatusPending   = "pending"
	ConversationStatusRunning   = "running"
	ConversationStatusCompleted = "completed"
	ConversationStatusFailed    = "failed"
)

// 回合结束原因
const (
	TerminationNaturalEnd = "natural_end"
	TerminationMaxTurns   = "max_turns"
)

// AutoConversation 自动对话回合模型
// 对应数据库 auto_conversation 表
// 一个回合由调度器或手动触发产生，执行器驱动状态机推进
type AutoConversation struct {
	gorm.Model

	// Uuid 回合唯一标识
	// 格式：C + 17位时间戳随机字符串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);comment:回合uuid"`

	// RelationUuid 所属匹配关系 UUID
	RelationUuid string `gorm:"column:relation_uuid;index;type:char(20);not null;comment:关系uuid"`

	// ScenarioUuid 本回合使用的场景 UUID
	ScenarioUuid string `gorm:"column:scenario_uuid;index;type:char(20);not null;comment:场景uuid"`

	// MaxTurns 本回合允许的最大消息数
	MaxTurns int `gorm:"column:max_turns;not null;comment:最大轮数"`

	// ActualTurns 实际产生的消息数
	ActualTurns int `gorm:"column:actual_turns;not null;default:0;comment:实际轮数"`

	// Status 回合状态：pending/running/completed/failed
	Status string `gorm:"column:status;index;type:varchar(10);default:pending;not null;comment:回合状态"`

	// StartedAt / EndedAt 回合起止时间
	StartedAt sql.NullTime `gorm:"column:started_at;type:datetime;comment:开始时间"`
	EndedAt   sql.NullTime `gorm:"column:ended_at;type:datetime;comment:结束时间"`

	// TerminationReason 结束原因
	// 正常结束为 natural_end 或 max_turns，失败时记录错误文本
	TerminationReason string `gorm:"column:termination_reason;type:varchar(255);comment:结束原因"`

	// LoveDelta / FriendshipDelta 本回合累计的分数增量
	LoveDelta       float64 `gorm:"column:love_delta;not null;default:0;comment:回合爱情增量"`
	FriendshipDelta float64 `gorm:"column:friendship_delta;not null;default:0;comment:回合友情增量"`
}

// TableName 指定表名
func (AutoConversation) TableName() string {
	return "auto_conversation"
}

// AutoConversationMessage 自动对话消息模型
// 对应数据库 auto_conversation_message 表
// message_index 从 0 开始密集递增，对应状态机的轮次序号
type AutoConversationMessage struct {
	gorm.Model

	// ConversationUuid 所属回合 UUID
	ConversationUuid string `gorm:"column:conversation_uuid;uniqueIndex:idx_conv_index;type:char(20);not null;comment:回合uuid"`

	// SenderAgentUuid 发言代理 UUID
	SenderAgentUuid string `gorm:"column:sender_agent_uuid;index;type:char(20);not null;comment:发言代理uuid"`

	// Content 生成的发言内容
	Content string `gorm:"column:content;type:TEXT;not null;comment:发言内容"`

	// MessageIndex 回合内序号，从 0 开始
	MessageIndex int `gorm:"column:message_index;uniqueIndex:idx_conv_index;not null;comment:回合内序号"`

	// ModelUsed 生成使用的模型名
	ModelUsed string `gorm:"column:model_used;type:varchar(50);comment:模型名"`

	// TokensUsed 本次生成消耗的 token 数
	TokensUsed int `gorm:"column:tokens_used;not null;default:0;comment:token消耗"`
}

// TableName 指定表名
func (AutoConversationMessage) TableName() string {
	return "auto_conversation_message"
}
