// Package repository 提供数据访问层的具体实现
// 本文件处理市场代理与数字人格相关的数据库操作
package repository

import (
	"time"

	"soullink_server/internal/model"

	"gorm.io/gorm"
)

type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository 创建市场代理 Repository 实例
func NewAgentRepository(db *gorm.DB) *agentRepository {
	return &agentRepository{db: db}
}

// FindByUuid 根据 UUID 查找代理
func (r *agentRepository) FindByUuid(uuid string) (*model.MarketAgent, error) {
	var agent model.MarketAgent
	if err := r.db.Where("uuid = ?", uuid).First(&agent).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询市场代理 uuid=%s", uuid)
	}
	return &agent, nil
}

// TouchInteraction 刷新代理的最近互动时间
func (r *agentRepository) TouchInteraction(uuid string, at time.Time) error {
	if err := r.db.Model(&model.MarketAgent{}).Where("uuid = ?", uuid).
		Update("last_interaction_at", at).Error; err != nil {
		return wrapDBErrorf(err, "更新代理互动时间 uuid=%s", uuid)
	}
	return nil
}

// CreateAgent 创建新代理
func (r *agentRepository) CreateAgent(agent *model.MarketAgent) error {
	if err := r.db.Create(agent).Error; err != nil {
		return wrapDBError(err, "创建市场代理")
	}
	return nil
}

type personaRepository struct {
	db *gorm.DB
}

// NewPersonaRepository 创建数字人格 Repository 实例
func NewPersonaRepository(db *gorm.DB) *personaRepository {
	return &personaRepository{db: db}
}

// FindByUuid 根据 UUID 查找人格
func (r *personaRepository) FindByUuid(uuid string) (*model.DigitalPersona, error) {
	var persona model.DigitalPersona
	if err := r.db.Where("uuid = ?", uuid).First(&persona).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询数字人格 uuid=%s", uuid)
	}
	return &persona, nil
}

// CreatePersona 创建新人格
func (r *personaRepository) CreatePersona(persona *model.DigitalPersona) error {
	if err := r.db.Create(persona).Error; err != nil {
		return wrapDBError(err, "创建数字人格")
	}
	return nil
}
