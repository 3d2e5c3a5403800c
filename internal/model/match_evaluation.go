// Package model 定义数据库实体模型
// 本文件定义匹配评估模型，记录自动对话中每条消息的契合度评分
package model

import (
	"gorm.io/gorm"
)

// MatchEvaluation 匹配评估模型
// 对应数据库 match_evaluation 表
// 每条自动对话消息产生一条评估，增量已被限幅到 [-10, 10]
type MatchEvaluation struct {
	gorm.Model

	// ConversationUuid 所属回合 UUID
	ConversationUuid string `gorm:"column:conversation_uuid;index;type:char(20);not null;comment:回合uuid"`

	// MessageIndex 被评估消息在回合内的序号
	MessageIndex int `gorm:"column:message_index;not null;comment:消息序号"`

	// LoveDelta / FriendshipDelta 评估产生的分数增量
	LoveDelta       float64 `gorm:"column:love_delta;not null;default:0;comment:爱情增量"`
	FriendshipDelta float64 `gorm:"column:friendship_delta;not null;default:0;comment:友情增量"`

	// Reason 评估理由
	Reason string `gorm:"column:reason;type:varchar(255);comment:评估理由"`

	// EvaluatorModel 评估使用的模型名
	EvaluatorModel string `gorm:"column:evaluator_model;type:varchar(50);comment:评估模型"`
}

// TableName 指定表名
func (MatchEvaluation) TableName() string {
	return "match_evaluation"
}
