// Package model 定义数据库实体模型
// 本文件定义对话场景模型，调度器随机抽取后作为自动对话的背景
package model

import (
	"gorm.io/gorm"
)

// Scenario 对话场景模型
// 对应数据库 scenario 表
type Scenario struct {
	gorm.Model

	// Uuid 场景唯一标识
	// 格式：N + 17位时间戳随机字符串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);comment:场景uuid"`

	// Name 场景名称
	Name string `gorm:"column:name;type:varchar(50);not null;comment:场景名称"`

	// Description 场景简介
	Description string `gorm:"column:description;type:varchar(255);comment:场景简介"`

	// ContextText 注入到生成提示中的场景背景文本
	ContextText string `gorm:"column:context_text;type:TEXT;not null;comment:场景背景"`

	// Category 场景分类，如 daily/romance/adventure
	Category string `gorm:"column:category;index;type:varchar(20);comment:场景分类"`

	// IsActive 是否启用，调度器只抽取启用中的场景
	IsActive bool `gorm:"column:is_active;index;not null;default:true;comment:是否启用"`
}

// TableName 指定表名
func (Scenario) TableName() string {
	return "scenario"
}
