package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	mysql "soullink_server/internal/dao/mysql"
	"soullink_server/internal/llm"
	"soullink_server/internal/model"
	"soullink_server/internal/service/match"
	"soullink_server/internal/service/task"
	"soullink_server/pkg/errorx"
)

// ==================== 桩实现 ====================

type stubRelationRepo struct {
	mu       sync.Mutex
	due      []model.MatchRelation
	rejected map[string]bool // 领取失败的关系
	claims   []string
}

func (r *stubRelationRepo) FindByUuid(uuid string) (*model.MatchRelation, error) {
	for _, relation := range r.due {
		if relation.Uuid == uuid {
			copied := relation
			return &copied, nil
		}
	}
	return nil, errorx.Newf(errorx.CodeNotFound, "关系 %s 不存在", uuid)
}

func (r *stubRelationRepo) FindDue(now time.Time, limit int) ([]model.MatchRelation, error) {
	return r.due, nil
}

func (r *stubRelationRepo) ClaimDue(uuid string, now, claimUntil time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejected[uuid] {
		return false, nil
	}
	r.claims = append(r.claims, uuid)
	return true, nil
}

func (r *stubRelationRepo) ApplyRoundResult(uuid string, loveDelta, friendshipDelta float64, completedAt, nextAt time.Time) error {
	return nil
}

func (r *stubRelationRepo) CreateRelation(relation *model.MatchRelation) error { return nil }

type stubScenarioRepo struct{}

func (r *stubScenarioRepo) FindByUuid(uuid string) (*model.Scenario, error) {
	return &model.Scenario{Uuid: uuid, ContextText: "海边散步", IsActive: true}, nil
}

func (r *stubScenarioRepo) FindActive() ([]model.Scenario, error) {
	return []model.Scenario{{Uuid: "N_beach", ContextText: "海边散步", IsActive: true}}, nil
}

func (r *stubScenarioRepo) CreateScenario(scenario *model.Scenario) error { return nil }

type stubAgentRepo struct{}

func (r *stubAgentRepo) FindByUuid(uuid string) (*model.MarketAgent, error) {
	return &model.MarketAgent{Uuid: uuid, PersonaUuid: "P_" + uuid, DisplayName: uuid}, nil
}

func (r *stubAgentRepo) TouchInteraction(uuid string, at time.Time) error { return nil }
func (r *stubAgentRepo) CreateAgent(agent *model.MarketAgent) error      { return nil }

type stubPersonaRepo struct{}

func (r *stubPersonaRepo) FindByUuid(uuid string) (*model.DigitalPersona, error) {
	return &model.DigitalPersona{Uuid: uuid, Name: uuid, SystemPrompt: "角色设定"}, nil
}

func (r *stubPersonaRepo) CreatePersona(persona *model.DigitalPersona) error { return nil }

type stubConversationRepo struct{}

func (r *stubConversationRepo) FindByUuid(uuid string) (*model.AutoConversation, error) {
	return nil, errorx.New(errorx.CodeNotFound, "回合不存在")
}
func (r *stubConversationRepo) CreateConversation(conv *model.AutoConversation) error { return nil }
func (r *stubConversationRepo) UpdateByUuid(uuid string, updates map[string]interface{}) error {
	return nil
}
func (r *stubConversationRepo) CreateMessage(msg *model.AutoConversationMessage) error { return nil }
func (r *stubConversationRepo) FindRecentMessages(conversationUuid string, limit int) ([]model.AutoConversationMessage, error) {
	return nil, nil
}

type stubEvaluationRepo struct{}

func (r *stubEvaluationRepo) CreateEvaluation(eval *model.MatchEvaluation) error { return nil }
func (r *stubEvaluationRepo) FindByConversation(conversationUuid string) ([]model.MatchEvaluation, error) {
	return nil, nil
}

type stubGenerator struct{}

func (g *stubGenerator) Generate(ctx context.Context, systemPrompt string, history []llm.Message, scenarioContext string) (string, llm.Usage, error) {
	return "发言", llm.Usage{Model: "stub-model"}, nil
}

func (g *stubGenerator) EvaluateCompatibility(ctx context.Context, content string, senderProfile, receiverProfile string, history []llm.Message) (llm.Evaluation, error) {
	return llm.Evaluation{LoveDelta: 1, Reason: "相处融洽", Model: "stub-model"}, nil
}

func (g *stubGenerator) ShouldEnd(ctx context.Context, history []llm.Message, scenarioContext string) (bool, error) {
	return true, nil
}

func activeRelation(uuid string) model.MatchRelation {
	return model.MatchRelation{
		Uuid:               uuid,
		InitiatorAgentUuid: "A_one",
		TargetAgentUuid:    "A_two",
		MatchType:          model.MarketTypeLove,
		Status:             model.RelationStatusActive,
	}
}

// failingScenarioRepo 模拟场景存储故障
type failingScenarioRepo struct{}

func (r *failingScenarioRepo) FindByUuid(uuid string) (*model.Scenario, error) {
	return nil, errorx.New(errorx.CodeDBError, "场景存储不可用")
}

func (r *failingScenarioRepo) FindActive() ([]model.Scenario, error) {
	return nil, errorx.New(errorx.CodeDBError, "场景存储不可用")
}

func (r *failingScenarioRepo) CreateScenario(scenario *model.Scenario) error {
	return errorx.New(errorx.CodeDBError, "场景存储不可用")
}

func newFixture(relations *stubRelationRepo) (*Scheduler, *task.Registry, *task.Executor) {
	return newFixtureWithScenarios(relations, &stubScenarioRepo{})
}

func newFixtureWithScenarios(relations *stubRelationRepo, scenarios mysql.ScenarioRepository) (*Scheduler, *task.Registry, *task.Executor) {
	repos := mysql.NewRepositoriesFromParts(nil, nil, nil,
		relations, &stubAgentRepo{}, &stubPersonaRepo{},
		scenarios, &stubConversationRepo{}, &stubEvaluationRepo{})
	matches := match.NewService(repos, &stubGenerator{})
	registry := task.NewRegistry()
	executor := task.NewExecutorWithSize(registry, 3, 16)
	sched := New(repos, matches, registry, executor,
		WithIntervals(time.Hour, 0, 30*time.Minute))
	return sched, registry, executor
}

// ==================== 调度器测试 ====================

func TestPollOnceClaimsAndSubmits(t *testing.T) {
	relations := &stubRelationRepo{
		due: []model.MatchRelation{activeRelation("R_one"), activeRelation("R_two")},
	}
	sched, _, executor := newFixture(relations)

	submitted := sched.pollOnce(context.Background())
	executor.Close()

	if submitted != 2 {
		t.Fatalf("应提交 2 条关系, got %d", submitted)
	}
	if len(relations.claims) != 2 {
		t.Fatalf("每条关系提交前都应先领取, got %v", relations.claims)
	}
}

func TestPollOnceSkipsUnclaimedRelations(t *testing.T) {
	relations := &stubRelationRepo{
		due:      []model.MatchRelation{activeRelation("R_one"), activeRelation("R_two")},
		rejected: map[string]bool{"R_two": true},
	}
	sched, _, executor := newFixture(relations)

	submitted := sched.pollOnce(context.Background())
	executor.Close()

	if submitted != 1 {
		t.Fatalf("领取失败的关系不应提交, got %d", submitted)
	}
	if len(relations.claims) != 1 || relations.claims[0] != "R_one" {
		t.Fatalf("只应领取到 R_one, got %v", relations.claims)
	}
}

func TestPollOnceScenarioOutageSkipsIteration(t *testing.T) {
	relations := &stubRelationRepo{
		due: []model.MatchRelation{activeRelation("R_one"), activeRelation("R_two")},
	}
	sched, _, executor := newFixtureWithScenarios(relations, &failingScenarioRepo{})
	defer executor.Close()

	if submitted := sched.pollOnce(context.Background()); submitted != 0 {
		t.Fatalf("场景取不到时本轮不应提交, got %d", submitted)
	}
	// 整轮跳过，不应领取任何关系，占位窗口留给下个周期
	if len(relations.claims) != 0 {
		t.Fatalf("场景取不到时不应消耗占位窗口, got %v", relations.claims)
	}
}

func TestPollOnceEmptyDueList(t *testing.T) {
	sched, _, executor := newFixture(&stubRelationRepo{})
	defer executor.Close()

	if submitted := sched.pollOnce(context.Background()); submitted != 0 {
		t.Fatalf("无到期关系时不应提交, got %d", submitted)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	sched, _, executor := newFixture(&stubRelationRepo{})
	defer executor.Close()

	if sched.Running() {
		t.Fatal("未启动时不应为运行中")
	}
	sched.Start()
	sched.Start() // 重复启动应无副作用
	if !sched.Running() {
		t.Fatal("启动后应为运行中")
	}
	sched.Stop()
	sched.Stop() // 重复停止应无副作用
	if sched.Running() {
		t.Fatal("停止后不应为运行中")
	}

	// 停止后可再次启动
	sched.Start()
	if !sched.Running() {
		t.Fatal("应支持重新启动")
	}
	sched.Stop()
}

func TestTriggerNow(t *testing.T) {
	relations := &stubRelationRepo{
		due: []model.MatchRelation{activeRelation("R_one")},
	}
	sched, registry, executor := newFixture(relations)

	taskId, err := sched.TriggerNow("R_one", 6)
	if err != nil {
		t.Fatal(err)
	}
	executor.Close()

	record, ok := registry.Get(taskId)
	if !ok {
		t.Fatal("触发后任务应已登记")
	}
	if record.Status != task.StatusCompleted {
		t.Fatalf("回合应执行完成, got %+v", record)
	}
	if record.Result["conversation_id"] == "" {
		t.Fatalf("结果应包含回合标识, got %+v", record.Result)
	}
	if record.Metadata["relation_uuid"] != "R_one" || record.Metadata["max_turns"] != 6 {
		t.Fatalf("任务应登记触发参数, got %+v", record.Metadata)
	}
	if record.StartedAt.IsZero() || record.CompletedAt.IsZero() {
		t.Fatalf("任务应记录开始与结束时间, got %+v", record)
	}
}

func TestTriggerNowUnknownRelation(t *testing.T) {
	sched, _, executor := newFixture(&stubRelationRepo{})
	defer executor.Close()

	if _, err := sched.TriggerNow("R_missing", 0); errorx.GetCode(err) != errorx.CodeNotFound {
		t.Fatalf("未知关系应返回未找到, got %v", err)
	}
}
