// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	mysql "soullink_server/internal/dao/mysql"
	myredis "soullink_server/internal/dao/redis"
	"soullink_server/internal/llm"
	"soullink_server/internal/service/match"
	"soullink_server/internal/service/session"
)

// Services 聚合 Handler 层依赖的 Service 实例
// 作为依赖注入的入口
type Services struct {
	Session SessionService
	Match   *match.Service
}

// NewServices 创建并注入所有 Service 实例
// repos: Repository 层聚合实例
// cache: Redis 缓存服务
// generator: 生成服务客户端
func NewServices(repos *mysql.Repositories, cache myredis.AsyncCacheService, generator llm.Generator) *Services {
	return &Services{
		Session: session.NewSessionService(repos, cache),
		Match:   match.NewService(repos, generator),
	}
}
