// Package match 负责匹配关系的自动对话回合
package match

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	mysql "soullink_server/internal/dao/mysql"
	"soullink_server/internal/llm"
	"soullink_server/internal/model"
	"soullink_server/pkg/errorx"
)

// Service 自动对话服务
// 回合执行见 round.go，这里负责关系校验与随机参数
type Service struct {
	repos     *mysql.Repositories
	generator llm.Generator

	randMu sync.Mutex
	rng    *rand.Rand
	now    func() time.Time // 测试注入
}

func NewService(repos *mysql.Repositories, generator llm.Generator) *Service {
	return &Service{
		repos:     repos,
		generator: generator,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// ValidateRelation 校验关系存在且处于活跃状态
func (s *Service) ValidateRelation(relationUuid string) (*model.MatchRelation, error) {
	relation, err := s.repos.Relation.FindByUuid(relationUuid)
	if err != nil {
		return nil, err
	}
	if relation.Status != model.RelationStatusActive {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "关系 %s 当前状态为 %s，无法触发对话", relationUuid, relation.Status)
	}
	return relation, nil
}

// ActiveScenarios 返回启用中的场景列表
// 调度器每个轮询周期只取一次，避免逐关系查询
func (s *Service) ActiveScenarios() ([]model.Scenario, error) {
	scenarios, err := s.repos.Scenario.FindActive()
	if err != nil {
		return nil, err
	}
	if len(scenarios) == 0 {
		return nil, errorx.New(errorx.CodeNotFound, "没有启用中的对话场景")
	}
	return scenarios, nil
}

// ChooseScenario 从给定场景列表随机抽取一个
func (s *Service) ChooseScenario(scenarios []model.Scenario) *model.Scenario {
	picked := scenarios[s.randIntn(len(scenarios))]
	return &picked
}

// PickScenario 从启用中的场景里随机抽取一个
func (s *Service) PickScenario() (*model.Scenario, error) {
	scenarios, err := s.ActiveScenarios()
	if err != nil {
		return nil, err
	}
	return s.ChooseScenario(scenarios), nil
}

// RandomMaxTurns 抽取本回合的最大消息数
func (s *Service) RandomMaxTurns() int {
	return minRoundTurns + s.randIntn(maxRoundTurns-minRoundTurns+1)
}

func (s *Service) randIntn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rng.Intn(n)
}

func (s *Service) randFloat64() float64 {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rng.Float64()
}

// 回合最大消息数的抽取区间
const (
	minRoundTurns = 6
	maxRoundTurns = 12
)

func agentProfile(agent *model.MarketAgent, persona *model.DigitalPersona) string {
	return fmt.Sprintf("%s：%s", agent.DisplayName, persona.Description)
}
