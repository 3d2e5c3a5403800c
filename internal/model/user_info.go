// Package model 定义数据库实体模型
// 本文件定义用户信息模型，仅保留实时聊天所需的基础资料
// 认证由外部网关完成，这里不存储任何凭证
package model

import (
	"gorm.io/gorm"
)

// UserInfo 用户信息模型
// 对应数据库 user_info 表
type UserInfo struct {
	gorm.Model // 内嵌 GORM 模型，包含 ID、CreatedAt、UpdatedAt、DeletedAt

	// Uuid 用户唯一标识
	// 格式：U + 17位时间戳随机字符串，如 "U241230AbCdE123456"
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);comment:用户唯一id"`

	// Nickname 用户昵称
	Nickname string `gorm:"column:nickname;type:varchar(20);not null;comment:昵称"`

	// Avatar 用户头像 URL
	Avatar string `gorm:"column:avatar;type:varchar(255);comment:头像"`
}

// TableName 指定表名
func (UserInfo) TableName() string {
	return "user_info"
}
