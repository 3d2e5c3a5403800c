// Package mysql 提供 Repository 层聚合与构造
package mysql

import (
	"sync"

	"gorm.io/gorm"

	"soullink_server/internal/dao/mysql/repository"
)

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db           *gorm.DB   // GORM 数据库实例
	mu           sync.Mutex // 无 db 时串行化事务回调
	User         UserRepository
	Session      SessionRepository
	Message      MessageRepository
	Relation     RelationRepository
	Agent        AgentRepository
	Persona      PersonaRepository
	Scenario     ScenarioRepository
	Conversation ConversationRepository
	Evaluation   EvaluationRepository
}

// NewRepositories 创建所有 Repository 实例
// 接收 GORM 数据库实例，初始化并返回 Repositories 聚合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		User:         repository.NewUserRepository(db),
		Session:      repository.NewSessionRepository(db),
		Message:      repository.NewMessageRepository(db),
		Relation:     repository.NewRelationRepository(db),
		Agent:        repository.NewAgentRepository(db),
		Persona:      repository.NewPersonaRepository(db),
		Scenario:     repository.NewScenarioRepository(db),
		Conversation: repository.NewConversationRepository(db),
		Evaluation:   repository.NewEvaluationRepository(db),
	}
}

// NewRepositoriesFromParts 以现成的 Repository 实例组装聚合
// 供测试注入桩实现使用
func NewRepositoriesFromParts(
	user UserRepository,
	session SessionRepository,
	message MessageRepository,
	relation RelationRepository,
	agent AgentRepository,
	persona PersonaRepository,
	scenario ScenarioRepository,
	conversation ConversationRepository,
	evaluation EvaluationRepository,
) *Repositories {
	return &Repositories{
		User:         user,
		Session:      session,
		Message:      message,
		Relation:     relation,
		Agent:        agent,
		Persona:      persona,
		Scenario:     scenario,
		Conversation: conversation,
		Evaluation:   evaluation,
	}
}

// Transaction 在数据库事务中执行函数
// 事务内的所有操作要么全部成功，要么全部回滚
// 无 db 实例时（桩实现场景）改为互斥串行执行回调
func (r *Repositories) Transaction(fn func(txRepos *Repositories) error) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return fn(r)
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		// 使用事务 db 创建新的 Repositories 实例
		return fn(NewRepositories(tx))
	})
}
