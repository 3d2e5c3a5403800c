// Package model 定义数据库实体模型
// 本文件定义数字人格模型，自动对话时作为生成的角色设定
package model

import (
	"gorm.io/gorm"
)

// DigitalPersona 数字人格模型
// 对应数据库 digital_persona 表
type DigitalPersona struct {
	gorm.Model

	// Uuid 人格唯一标识
	// 格式：P + 17位时间戳随机字符串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);comment:人格uuid"`

	// UserUuid 所属用户 UUID
	UserUuid string `gorm:"column:user_uuid;index;type:char(20);not null;comment:所属用户uuid"`

	// Name 人格名称
	Name string `gorm:"column:name;type:varchar(50);not null;comment:人格名称"`

	// Description 人格简介
	Description string `gorm:"column:description;type:TEXT;comment:人格简介"`

	// SystemPrompt 生成对话时使用的角色设定
	SystemPrompt string `gorm:"column:system_prompt;type:TEXT;not null;comment:角色设定"`

	// IsActive 是否启用
	IsActive bool `gorm:"column:is_active;index;not null;default:true;comment:是否启用"`
}

// TableName 指定表名
func (DigitalPersona) TableName() string {
	return "digital_persona"
}
