// Package repository 提供数据访问层的具体实现
// 本文件处理对话场景相关的数据库操作
package repository

import (
	"soullink_server/internal/model"

	"gorm.io/gorm"
)

type scenarioRepository struct {
	db *gorm.DB
}

// NewScenarioRepository 创建场景 Repository 实例
func NewScenarioRepository(db *gorm.DB) *scenarioRepository {
	return &scenarioRepository{db: db}
}

// FindByUuid 根据 UUID 查找场景
func (r *scenarioRepository) FindByUuid(uuid string) (*model.Scenario, error) {
	var scenario model.Scenario
	if err := r.db.Where("uuid = ?", uuid).First(&scenario).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询场景 uuid=%s", uuid)
	}
	return &scenario, nil
}

// FindActive 查找所有启用中的场景
func (r *scenarioRepository) FindActive() ([]model.Scenario, error) {
	var scenarios []model.Scenario
	if err := r.db.Where("is_active = ?", true).Find(&scenarios).Error; err != nil {
		return nil, wrapDBError(err, "查询启用场景")
	}
	return scenarios, nil
}

// CreateScenario 创建新场景
func (r *scenarioRepository) CreateScenario(scenario *model.Scenario) error {
	if err := r.db.Create(scenario).Error; err != nil {
		return wrapDBError(err, "创建场景")
	}
	return nil
}
