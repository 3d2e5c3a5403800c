// Package model 定义数据库实体模型
// 本文件定义聊天消息模型
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// 消息类型
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// ChatMessage 聊天消息模型
// 对应数据库 chat_message 表
// 消息在会话内只追加，靠软删除标志隐藏，永不物理删除
type ChatMessage struct {
	gorm.Model

	// Uuid 消息唯一标识
	// 使用雪花算法生成的 int64 类型 ID
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`

	// SessionId 会话 UUID，关联 chat_session 表
	SessionId string `gorm:"column:session_id;uniqueIndex:idx_session_seq;type:char(20);not null;comment:会话uuid"`

	// SequenceNumber 会话内序号，从 1 开始严格递增
	// 在插入消息的事务内由会话行的 message_count 派生，保证无空洞不重复
	SequenceNumber int64 `gorm:"column:sequence_number;uniqueIndex:idx_session_seq;type:bigint;not null;comment:会话内序号"`

	// SenderId 发送者 UUID
	SenderId string `gorm:"column:sender_id;index;type:char(20);not null;comment:发送者uuid"`

	// Content 消息文本内容
	Content string `gorm:"column:content;type:TEXT;not null;comment:消息内容"`

	// Type 消息类型：text/system
	Type string `gorm:"column:type;type:varchar(10);default:text;not null;comment:消息类型"`

	// IsDeleted 软删除标志，列表查询时排除
	IsDeleted bool `gorm:"column:is_deleted;not null;default:false;comment:软删除标志"`

	// IsRead 已读标志
	IsRead bool `gorm:"column:is_read;not null;default:false;comment:已读标志"`

	// ReadAt 首次标记已读的时间，重复标记不覆盖
	ReadAt sql.NullTime `gorm:"column:read_at;type:datetime;comment:已读时间"`
}

// TableName 指定表名
func (ChatMessage) TableName() string {
	return "chat_message"
}
