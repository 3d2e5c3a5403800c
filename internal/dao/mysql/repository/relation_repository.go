// Package repository 提供数据访问层的具体实现
// 本文件处理匹配关系相关的数据库操作
package repository

import (
	"time"

	"soullink_server/internal/model"

	"gorm.io/gorm"
)

type relationRepository struct {
	db *gorm.DB
}

// NewRelationRepository 创建匹配关系 Repository 实例
func NewRelationRepository(db *gorm.DB) *relationRepository {
	return &relationRepository{db: db}
}

// FindByUuid 根据 UUID 查找关系
func (r *relationRepository) FindByUuid(uuid string) (*model.MatchRelation, error) {
	var relation model.MatchRelation
	if err := r.db.Where("uuid = ?", uuid).First(&relation).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询匹配关系 uuid=%s", uuid)
	}
	return &relation, nil
}

// FindDue 查找已到调度时间的活跃关系
func (r *relationRepository) FindDue(now time.Time, limit int) ([]model.MatchRelation, error) {
	var relations []model.MatchRelation
	tx := r.db.Where("status = ? AND next_scheduled_at IS NOT NULL AND next_scheduled_at <= ?",
		model.RelationStatusActive, now).
		Order("next_scheduled_at ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&relations).Error; err != nil {
		return nil, wrapDBError(err, "查询到期关系")
	}
	return relations, nil
}

// ClaimDue 占位式领取到期关系
// 条件 UPDATE 把 next_scheduled_at 推后到 claimUntil，影响行数为 0
// 说明关系已被其他轮次领走或状态已变，调用方应跳过该关系
func (r *relationRepository) ClaimDue(uuid string, now time.Time, claimUntil time.Time) (bool, error) {
	res := r.db.Model(&model.MatchRelation{}).
		Where("uuid = ? AND status = ? AND next_scheduled_at IS NOT NULL AND next_scheduled_at <= ?",
			uuid, model.RelationStatusActive, now).
		Update("next_scheduled_at", claimUntil)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "领取关系 uuid=%s", uuid)
	}
	return res.RowsAffected > 0, nil
}

// ApplyRoundResult 回合完成后累加分数并推进调度时间
func (r *relationRepository) ApplyRoundResult(uuid string, loveDelta, friendshipDelta float64, completedAt, nextAt time.Time) error {
	if err := r.db.Model(&model.MatchRelation{}).Where("uuid = ?", uuid).
		Updates(map[string]interface{}{
			"love_score":           gorm.Expr("love_score + ?", loveDelta),
			"friendship_score":     gorm.Expr("friendship_score + ?", friendshipDelta),
			"total_interactions":   gorm.Expr("total_interactions + 1"),
			"last_conversation_at": completedAt,
			"next_scheduled_at":    nextAt,
		}).Error; err != nil {
		return wrapDBErrorf(err, "写入回合结果 uuid=%s", uuid)
	}
	return nil
}

// CreateRelation 创建新关系
func (r *relationRepository) CreateRelation(relation *model.MatchRelation) error {
	if err := r.db.Create(relation).Error; err != nil {
		return wrapDBError(err, "创建匹配关系")
	}
	return nil
}
