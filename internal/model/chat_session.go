// Package model 定义数据库实体模型
// 本文件定义双人聊天会话模型
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// 会话状态
const (
	SessionStatusActive   = "active"
	SessionStatusArchived = "archived"
	SessionStatusBlocked  = "blocked"
)

// ChatSession 双人聊天会话模型
// 对应数据库 chat_session 表
// 两个参与者按字典序归一化存储：UserOneId < UserTwoId
// 同一对用户最多只有一个活跃会话，由 (user_one_id, user_two_id) 唯一索引保证
type ChatSession struct {
	gorm.Model

	// Uuid 会话唯一标识
	// 格式：S + 17位时间戳随机字符串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);comment:会话uuid"`

	// UserOneId 字典序较小的参与者 UUID
	UserOneId string `gorm:"column:user_one_id;uniqueIndex:idx_session_pair;type:char(20);not null;comment:参与者一uuid"`

	// UserTwoId 字典序较大的参与者 UUID
	UserTwoId string `gorm:"column:user_two_id;uniqueIndex:idx_session_pair;type:char(20);not null;comment:参与者二uuid"`

	// Status 会话状态：active/archived/blocked
	Status string `gorm:"column:status;index;type:varchar(10);default:active;not null;comment:会话状态"`

	// MessageCount 会话内消息总数
	// 与消息插入在同一事务内更新，消息序号 = MessageCount + 1
	MessageCount int64 `gorm:"column:message_count;not null;default:0;comment:消息总数"`

	// LastMessageAt 最后消息时间，用于会话列表排序
	LastMessageAt sql.NullTime `gorm:"column:last_message_at;type:datetime;comment:最近消息时间"`

	// UserOneOnline / UserTwoOnline 参与者实时在线标志
	// 由连接管理器在连接建立/断开时镜像写入
	UserOneOnline bool `gorm:"column:user_one_online;not null;default:false;comment:参与者一在线"`
	UserTwoOnline bool `gorm:"column:user_two_online;not null;default:false;comment:参与者二在线"`

	// UserOneLastSeen / UserTwoLastSeen 参与者最近离线时间
	UserOneLastSeen sql.NullTime `gorm:"column:user_one_last_seen;type:datetime;comment:参与者一离线时间"`
	UserTwoLastSeen sql.NullTime `gorm:"column:user_two_last_seen;type:datetime;comment:参与者二离线时间"`
}

// TableName 指定表名
func (ChatSession) TableName() string {
	return "chat_session"
}

// HasParticipant 判断用户是否为会话参与者
func (s *ChatSession) HasParticipant(userId string) bool {
	return s.UserOneId == userId || s.UserTwoId == userId
}

// PeerOf 返回对端用户 UUID，非参与者时返回空串
func (s *ChatSession) PeerOf(userId string) string {
	switch userId {
	case s.UserOneId:
		return s.UserTwoId
	case s.UserTwoId:
		return s.UserOneId
	}
	return ""
}

// NormalizePair 将两个用户 UUID 归一化为 (较小, 较大) 的顺序
// 所有按用户对查询/建会话的入口都先经过这里
func NormalizePair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}
