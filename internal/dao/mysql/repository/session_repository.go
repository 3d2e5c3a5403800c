// Package repository 提供数据访问层的具体实现
// 本文件处理双人会话相关的数据库操作
package repository

import (
	"time"

	"soullink_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话 Repository 实例
func NewSessionRepository(db *gorm.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

// FindByUuid 根据 UUID 查找会话
func (r *sessionRepository) FindByUuid(uuid string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.Where("uuid = ?", uuid).First(&session).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 uuid=%s", uuid)
	}
	return &session, nil
}

// FindByUuidForUpdate 根据 UUID 查找会话并加行锁
// 仅在事务内调用，消息序号分配依赖该锁保证计数读写的原子性
func (r *sessionRepository) FindByUuidForUpdate(uuid string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", uuid).First(&session).Error; err != nil {
		return nil, wrapDBErrorf(err, "锁定会话 uuid=%s", uuid)
	}
	return &session, nil
}

// FindByPair 根据归一化后的参与者对查找会话
// 调用方负责先用 model.NormalizePair 归一化
func (r *sessionRepository) FindByPair(userOneId, userTwoId string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.Where("user_one_id = ? AND user_two_id = ?", userOneId, userTwoId).
		First(&session).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 pair=(%s,%s)", userOneId, userTwoId)
	}
	return &session, nil
}

// FindByUser 查找用户参与的所有活跃会话，按最近消息时间倒序
func (r *sessionRepository) FindByUser(userId string) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	if err := r.db.Where("(user_one_id = ? OR user_two_id = ?) AND status = ?",
		userId, userId, model.SessionStatusActive).
		Order("last_message_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话列表 user=%s", userId)
	}
	return sessions, nil
}

// CreateSession 创建新会话
// 同一用户对的并发创建由 (user_one_id, user_two_id) 唯一索引兜底
func (r *sessionRepository) CreateSession(session *model.ChatSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return wrapDBError(err, "创建会话")
	}
	return nil
}

// IncrementMessageStats 累加消息计数并刷新最近消息时间
func (r *sessionRepository) IncrementMessageStats(uuid string, at time.Time) error {
	if err := r.db.Model(&model.ChatSession{}).Where("uuid = ?", uuid).
		Updates(map[string]interface{}{
			"message_count":   gorm.Expr("message_count + 1"),
			"last_message_at": at,
		}).Error; err != nil {
		return wrapDBErrorf(err, "更新会话计数 uuid=%s", uuid)
	}
	return nil
}

// UpdateOnlineFlag 更新指定参与者槽位的在线标志
func (r *sessionRepository) UpdateOnlineFlag(uuid string, slotOne bool, online bool, at time.Time) error {
	updates := map[string]interface{}{}
	if slotOne {
		updates["user_one_online"] = online
		if !online {
			updates["user_one_last_seen"] = at
		}
	} else {
		updates["user_two_online"] = online
		if !online {
			updates["user_two_last_seen"] = at
		}
	}
	if err := r.db.Model(&model.ChatSession{}).Where("uuid = ?", uuid).
		Updates(updates).Error; err != nil {
		return wrapDBErrorf(err, "更新在线状态 uuid=%s", uuid)
	}
	return nil
}
