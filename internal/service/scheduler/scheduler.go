// Package scheduler 周期轮询到期的匹配关系并提交自动对话回合
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	mysql "soullink_server/internal/dao/mysql"
	"soullink_server/internal/model"
	"soullink_server/internal/service/match"
	"soullink_server/internal/service/task"
)

// 单次轮询最多处理的到期关系数
const dueBatchLimit = 50

// Scheduler 自动对话调度器
// 每个轮询周期领取到期关系，为每条关系登记任务并交给执行器，
// 逐项之间留出间隔以摊平生成服务的压力
type Scheduler struct {
	repos    *mysql.Repositories
	matches  *match.Service
	registry *task.Registry
	executor *task.Executor

	pollInterval time.Duration
	itemDelay    time.Duration
	claimWindow  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	now func() time.Time // 测试注入
}

type Option func(*Scheduler)

// WithIntervals 覆盖轮询周期与逐项间隔，测试用
func WithIntervals(pollInterval, itemDelay, claimWindow time.Duration) Option {
	return func(s *Scheduler) {
		s.pollInterval = pollInterval
		s.itemDelay = itemDelay
		s.claimWindow = claimWindow
	}
}

func New(repos *mysql.Repositories, matches *match.Service, registry *task.Registry, executor *task.Executor, opts ...Option) *Scheduler {
	s := &Scheduler{
		repos:        repos,
		matches:      matches,
		registry:     registry,
		executor:     executor,
		pollInterval: 5 * time.Minute,
		itemDelay:    time.Second,
		claimWindow:  30 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig 按配置构造调度器
func NewFromConfig(cfg SchedulerSettings, repos *mysql.Repositories, matches *match.Service, registry *task.Registry, executor *task.Executor) *Scheduler {
	return New(repos, matches, registry, executor, WithIntervals(
		time.Duration(cfg.PollInterval)*time.Second,
		time.Duration(cfg.ItemDelay)*time.Second,
		time.Duration(cfg.ClaimWindow)*time.Minute,
	))
}

// SchedulerSettings 从配置层拷贝的调度参数
type SchedulerSettings struct {
	PollInterval int
	ItemDelay    int
	ClaimWindow  int
}

// Start 启动调度循环，重复调用只生效一次
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
	zap.L().Info("自动对话调度器已启动",
		zap.Duration("poll_interval", s.pollInterval),
		zap.Duration("claim_window", s.claimWindow),
	)
}

// Stop 停止调度循环并等待当前轮询结束，重复调用只生效一次
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	zap.L().Info("自动对话调度器已停止")
}

// Running 返回调度循环是否在运行
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// PollInterval 返回轮询周期
func (s *Scheduler) PollInterval() time.Duration {
	return s.pollInterval
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

// pollOnce 执行一个轮询周期：领取到期关系并逐项提交
func (s *Scheduler) pollOnce(ctx context.Context) int {
	now := s.now()
	due, err := s.repos.Relation.FindDue(now, dueBatchLimit)
	if err != nil {
		zap.L().Error("查询到期关系失败", zap.Error(err))
		return 0
	}
	if len(due) == 0 {
		return 0
	}
	zap.L().Info("发现到期关系", zap.Int("count", len(due)))

	// 场景列表每个周期取一次，取不到就整轮跳过，不消耗关系的占位窗口
	scenarios, err := s.matches.ActiveScenarios()
	if err != nil {
		zap.L().Error("获取场景列表失败，本轮跳过", zap.Error(err))
		return 0
	}

	submitted := 0
	for i, relation := range due {
		select {
		case <-ctx.Done():
			return submitted
		default:
		}

		// 先占位再提交，防止下个周期重复领取同一关系
		claimed, err := s.repos.Relation.ClaimDue(relation.Uuid, now, now.Add(s.claimWindow))
		if err != nil {
			zap.L().Error("领取关系失败",
				zap.String("relation_uuid", relation.Uuid),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}

		if s.submitRound(relation.Uuid, s.matches.ChooseScenario(scenarios)) {
			submitted++
		}

		if s.itemDelay > 0 && i < len(due)-1 {
			select {
			case <-ctx.Done():
				return submitted
			case <-time.After(s.itemDelay):
			}
		}
	}
	return submitted
}

// submitRound 为一条关系登记任务并提交回合
func (s *Scheduler) submitRound(relationUuid string, scenario *model.Scenario) bool {
	maxTurns := s.matches.RandomMaxTurns()

	taskId := s.registry.Create("auto_conversation", map[string]interface{}{
		"relation_uuid": relationUuid,
		"scenario_uuid": scenario.Uuid,
		"max_turns":     maxTurns,
	})
	s.executor.Submit(task.Job{
		TaskId: taskId,
		Run: func(ctx context.Context) (map[string]interface{}, error) {
			return s.matches.RunConversation(ctx, relationUuid, scenario.Uuid, maxTurns)
		},
	})
	zap.L().Info("已提交自动对话回合",
		zap.String("relation_uuid", relationUuid),
		zap.String("scenario_uuid", scenario.Uuid),
		zap.String("task_id", taskId),
		zap.Int("max_turns", maxTurns),
	)
	return true
}

// TriggerNow 手动触发一条关系的自动对话，返回任务 ID
// 不做占位领取，调用方已通过关系校验
func (s *Scheduler) TriggerNow(relationUuid string, maxTurns int) (string, error) {
	if _, err := s.matches.ValidateRelation(relationUuid); err != nil {
		return "", err
	}
	scenario, err := s.matches.PickScenario()
	if err != nil {
		return "", err
	}
	if maxTurns <= 0 {
		maxTurns = s.matches.RandomMaxTurns()
	}

	taskId := s.registry.Create("auto_conversation", map[string]interface{}{
		"relation_uuid": relationUuid,
		"scenario_uuid": scenario.Uuid,
		"max_turns":     maxTurns,
	})
	s.executor.Submit(task.Job{
		TaskId: taskId,
		Run: func(ctx context.Context) (map[string]interface{}, error) {
			return s.matches.RunConversation(ctx, relationUuid, scenario.Uuid, maxTurns)
		},
	})
	return taskId, nil
}
