// Package model 定义数据库实体模型
// 本文件定义市场代理模型，用户将数字人格投放到匹配市场后产生
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// 市场类型
const (
	MarketTypeLove       = "love"
	MarketTypeFriendship = "friendship"
)

// MarketAgent 市场代理模型
// 对应数据库 market_agent 表
type MarketAgent struct {
	gorm.Model

	// Uuid 代理唯一标识
	// 格式：A + 17位时间戳随机字符串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);comment:代理uuid"`

	// UserUuid 所属用户 UUID
	UserUuid string `gorm:"column:user_uuid;index;type:char(20);not null;comment:所属用户uuid"`

	// PersonaUuid 绑定的数字人格 UUID
	PersonaUuid string `gorm:"column:persona_uuid;index;type:char(20);not null;comment:人格uuid"`

	// MarketType 市场类型：love/friendship
	MarketType string `gorm:"column:market_type;index;type:varchar(12);not null;comment:市场类型"`

	// DisplayName 市场展示名
	DisplayName string `gorm:"column:display_name;type:varchar(50);not null;comment:展示名"`

	// Description 市场展示简介
	Description string `gorm:"column:description;type:TEXT;comment:展示简介"`

	// Tags 标签，JSON 数组字符串
	Tags string `gorm:"column:tags;type:varchar(255);comment:标签"`

	// IsActive 是否在市场上活跃
	IsActive bool `gorm:"column:is_active;index;not null;default:true;comment:是否活跃"`

	// LastInteractionAt 最近一次自动对话时间
	LastInteractionAt sql.NullTime `gorm:"column:last_interaction_at;type:datetime;comment:最近互动时间"`
}

// TableName 指定表名
func (MarketAgent) TableName() string {
	return "market_agent"
}
