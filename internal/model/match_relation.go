// Package model 定义数据库实体模型
// 本文件定义匹配关系模型，两个市场代理建立匹配后产生
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// 匹配关系状态
const (
	RelationStatusActive = "active"
	RelationStatusPaused = "paused"
	RelationStatusEnded  = "ended"
)

// MatchRelation 匹配关系模型
// 对应数据库 match_relation 表
// 自动对话调度器按 next_scheduled_at 轮询活跃关系
type MatchRelation struct {
	gorm.Model

	// Uuid 关系唯一标识
	// 格式：R + 17位时间戳随机字符串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);comment:关系uuid"`

	// InitiatorUserUuid / TargetUserUuid 双方用户 UUID
	InitiatorUserUuid string `gorm:"column:initiator_user_uuid;index;type:char(20);not null;comment:发起方用户uuid"`
	TargetUserUuid    string `gorm:"column:target_user_uuid;index;type:char(20);not null;comment:目标方用户uuid"`

	// InitiatorAgentUuid / TargetAgentUuid 双方市场代理 UUID
	InitiatorAgentUuid string `gorm:"column:initiator_agent_uuid;index;type:char(20);not null;comment:发起方代理uuid"`
	TargetAgentUuid    string `gorm:"column:target_agent_uuid;index;type:char(20);not null;comment:目标方代理uuid"`

	// MatchType 匹配类型：love/friendship
	MatchType string `gorm:"column:match_type;type:varchar(12);not null;comment:匹配类型"`

	// LoveScore / FriendshipScore 累计契合度分数
	// 每回合的增量直接累加，不设上限
	LoveScore       float64 `gorm:"column:love_score;not null;default:0;comment:累计爱情分"`
	FriendshipScore float64 `gorm:"column:friendship_score;not null;default:0;comment:累计友情分"`

	// TotalInteractions 已完成的自动对话回合数
	TotalInteractions int `gorm:"column:total_interactions;not null;default:0;comment:累计回合数"`

	// Status 关系状态：active/paused/ended
	Status string `gorm:"column:status;index;type:varchar(10);default:active;not null;comment:关系状态"`

	// LastConversationAt 最近一次完成回合的时间
	LastConversationAt sql.NullTime `gorm:"column:last_conversation_at;type:datetime;comment:最近对话时间"`

	// NextScheduledAt 下次自动对话的调度时间
	// 调度器领取关系时会先把它推后一个占位窗口，防止同一关系被并发提交
	NextScheduledAt sql.NullTime `gorm:"column:next_scheduled_at;index;type:datetime;comment:下次调度时间"`
}

// TableName 指定表名
func (MatchRelation) TableName() string {
	return "match_relation"
}
