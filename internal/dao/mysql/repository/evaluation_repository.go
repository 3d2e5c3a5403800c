// Package repository 提供数据访问层的具体实现
// 本文件处理匹配评估相关的数据库操作
package repository

import (
	"soullink_server/internal/model"

	"gorm.io/gorm"
)

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository 创建匹配评估 Repository 实例
func NewEvaluationRepository(db *gorm.DB) *evaluationRepository {
	return &evaluationRepository{db: db}
}

// CreateEvaluation 创建评估记录
func (r *evaluationRepository) CreateEvaluation(eval *model.MatchEvaluation) error {
	if err := r.db.Create(eval).Error; err != nil {
		return wrapDBError(err, "创建评估记录")
	}
	return nil
}

// FindByConversation 查询回合内的所有评估
func (r *evaluationRepository) FindByConversation(conversationUuid string) ([]model.MatchEvaluation, error) {
	var evals []model.MatchEvaluation
	if err := r.db.Where("conversation_uuid = ?", conversationUuid).
		Order("message_index ASC").
		Find(&evals).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询评估记录 conv=%s", conversationUuid)
	}
	return evals, nil
}
