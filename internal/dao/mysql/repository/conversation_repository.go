// Package repository 提供数据访问层的具体实现
// 本文件处理自动对话回合及回合消息的数据库操作
package repository

import (
	"soullink_server/internal/model"

	"gorm.io/gorm"
)

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建自动对话 Repository 实例
func NewConversationRepository(db *gorm.DB) *conversationRepository {
	return &conversationRepository{db: db}
}

// FindByUuid 根据 UUID 查找回合
func (r *conversationRepository) FindByUuid(uuid string) (*model.AutoConversation, error) {
	var conv model.AutoConversation
	if err := r.db.Where("uuid = ?", uuid).First(&conv).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询回合 uuid=%s", uuid)
	}
	return &conv, nil
}

// CreateConversation 创建新回合
func (r *conversationRepository) CreateConversation(conv *model.AutoConversation) error {
	if err := r.db.Create(conv).Error; err != nil {
		return wrapDBError(err, "创建回合")
	}
	return nil
}

// UpdateByUuid 按 UUID 更新回合字段
// 状态流转与结果落盘都走这里，如 {"status": "completed", "actual_turns": 8}
func (r *conversationRepository) UpdateByUuid(uuid string, updates map[string]interface{}) error {
	if err := r.db.Model(&model.AutoConversation{}).Where("uuid = ?", uuid).
		Updates(updates).Error; err != nil {
		return wrapDBErrorf(err, "更新回合 uuid=%s", uuid)
	}
	return nil
}

// CreateMessage 追加回合消息
func (r *conversationRepository) CreateMessage(msg *model.AutoConversationMessage) error {
	if err := r.db.Create(msg).Error; err != nil {
		return wrapDBError(err, "创建回合消息")
	}
	return nil
}

// FindRecentMessages 查询回合内最近的若干条消息
// 先按序号倒序取 limit 条，再反转为升序返回，方便拼接上下文
func (r *conversationRepository) FindRecentMessages(conversationUuid string, limit int) ([]model.AutoConversationMessage, error) {
	var messages []model.AutoConversationMessage
	tx := r.db.Where("conversation_uuid = ?", conversationUuid).
		Order("message_index DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询回合消息 conv=%s", conversationUuid)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
