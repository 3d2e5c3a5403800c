// Package repository 提供数据访问层的具体实现
// 本文件处理聊天消息相关的数据库操作
package repository

import (
	"time"

	"soullink_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository 实例
func NewMessageRepository(db *gorm.DB) *messageRepository {
	return &messageRepository{db: db}
}

// Create 创建新消息
// 序号冲突会触发 (session_id, sequence_number) 唯一索引错误
func (r *messageRepository) Create(message *model.ChatMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBError(err, "创建消息")
	}
	return nil
}

// FindBySessionDesc 查询会话消息，按序号倒序分页，排除软删除
func (r *messageRepository) FindBySessionDesc(sessionId string, limit, offset int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	tx := r.db.Where("session_id = ? AND is_deleted = ?", sessionId, false).
		Order("sequence_number DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	if err := tx.Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息列表 session=%s", sessionId)
	}
	return messages, nil
}

// MarkRead 将会话内非 readerId 发送的未读消息标记为已读
// upToSequence > 0 时仅标记序号不超过该值的消息
// 只更新 is_read = false 的行，因此重复调用是幂等的
func (r *messageRepository) MarkRead(sessionId, readerId string, upToSequence int64, at time.Time) (int64, error) {
	tx := r.db.Model(&model.ChatMessage{}).
		Where("session_id = ? AND sender_id <> ? AND is_read = ? AND is_deleted = ?",
			sessionId, readerId, false, false)
	if upToSequence > 0 {
		tx = tx.Where("sequence_number <= ?", upToSequence)
	}
	res := tx.Updates(map[string]interface{}{
		"is_read": true,
		"read_at": at,
	})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "标记已读 session=%s reader=%s", sessionId, readerId)
	}
	return res.RowsAffected, nil
}
