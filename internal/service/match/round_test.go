package match

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mysql "soullink_server/internal/dao/mysql"
	"soullink_server/internal/llm"
	"soullink_server/internal/model"
	"soullink_server/pkg/errorx"
)

// ==================== 数据层桩实现 ====================

type stubRelationRepo struct {
	relation *model.MatchRelation
	applied  bool
	appliedLove, appliedFriendship float64
	appliedNextAt time.Time
}

func (r *stubRelationRepo) FindByUuid(uuid string) (*model.MatchRelation, error) {
	if r.relation == nil || r.relation.Uuid != uuid {
		return nil, errorx.Newf(errorx.CodeNotFound, "关系 %s 不存在", uuid)
	}
	copied := *r.relation
	return &copied, nil
}

func (r *stubRelationRepo) FindDue(now time.Time, limit int) ([]model.MatchRelation, error) {
	return nil, nil
}

func (r *stubRelationRepo) ClaimDue(uuid string, now, claimUntil time.Time) (bool, error) {
	return true, nil
}

func (r *stubRelationRepo) ApplyRoundResult(uuid string, loveDelta, friendshipDelta float64, completedAt, nextAt time.Time) error {
	r.applied = true
	r.appliedLove = loveDelta
	r.appliedFriendship = friendshipDelta
	r.appliedNextAt = nextAt
	return nil
}

func (r *stubRelationRepo) CreateRelation(relation *model.MatchRelation) error { return nil }

type stubScenarioRepo struct {
	scenarios []model.Scenario
}

func (r *stubScenarioRepo) FindByUuid(uuid string) (*model.Scenario, error) {
	for _, scenario := range r.scenarios {
		if scenario.Uuid == uuid {
			copied := scenario
			return &copied, nil
		}
	}
	return nil, errorx.Newf(errorx.CodeNotFound, "场景 %s 不存在", uuid)
}

func (r *stubScenarioRepo) FindActive() ([]model.Scenario, error) {
	return r.scenarios, nil
}

func (r *stubScenarioRepo) CreateScenario(scenario *model.Scenario) error { return nil }

type stubAgentRepo struct {
	agents  map[string]*model.MarketAgent
	touched []string
}

func (r *stubAgentRepo) FindByUuid(uuid string) (*model.MarketAgent, error) {
	agent, ok := r.agents[uuid]
	if !ok {
		return nil, errorx.Newf(errorx.CodeNotFound, "代理 %s 不存在", uuid)
	}
	copied := *agent
	return &copied, nil
}

func (r *stubAgentRepo) TouchInteraction(uuid string, at time.Time) error {
	r.touched = append(r.touched, uuid)
	return nil
}

func (r *stubAgentRepo) CreateAgent(agent *model.MarketAgent) error { return nil }

type stubPersonaRepo struct {
	personas map[string]*model.DigitalPersona
}

func (r *stubPersonaRepo) FindByUuid(uuid string) (*model.DigitalPersona, error) {
	persona, ok := r.personas[uuid]
	if !ok {
		return nil, errorx.Newf(errorx.CodeNotFound, "人格 %s 不存在", uuid)
	}
	copied := *persona
	return &copied, nil
}

func (r *stubPersonaRepo) CreatePersona(persona *model.DigitalPersona) error { return nil }

type stubConversationRepo struct {
	conversations map[string]*model.AutoConversation
	messages      []model.AutoConversationMessage
	updates       map[string]map[string]interface{}
}

func newStubConversationRepo() *stubConversationRepo {
	return &stubConversationRepo{
		conversations: make(map[string]*model.AutoConversation),
		updates:       make(map[string]map[string]interface{}),
	}
}

func (r *stubConversationRepo) FindByUuid(uuid string) (*model.AutoConversation, error) {
	conv, ok := r.conversations[uuid]
	if !ok {
		return nil, errorx.Newf(errorx.CodeNotFound, "回合 %s 不存在", uuid)
	}
	copied := *conv
	return &copied, nil
}

func (r *stubConversationRepo) CreateConversation(conv *model.AutoConversation) error {
	copied := *conv
	r.conversations[conv.Uuid] = &copied
	return nil
}

func (r *stubConversationRepo) UpdateByUuid(uuid string, updates map[string]interface{}) error {
	r.updates[uuid] = updates
	return nil
}

func (r *stubConversationRepo) CreateMessage(msg *model.AutoConversationMessage) error {
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *stubConversationRepo) FindRecentMessages(conversationUuid string, limit int) ([]model.AutoConversationMessage, error) {
	return nil, nil
}

type stubEvaluationRepo struct {
	evaluations []model.MatchEvaluation
}

func (r *stubEvaluationRepo) CreateEvaluation(eval *model.MatchEvaluation) error {
	r.evaluations = append(r.evaluations, *eval)
	return nil
}

func (r *stubEvaluationRepo) FindByConversation(conversationUuid string) ([]model.MatchEvaluation, error) {
	return r.evaluations, nil
}

// ==================== 生成服务桩实现 ====================

// scriptedGenerator 按脚本返回结果，记录收到的上下文
type scriptedGenerator struct {
	generateCalls   int
	historySizes    []int
	failAtCall      int     // 第几次 Generate 调用返回错误，0 表示不失败
	loveDelta       float64
	friendshipDelta float64
	endAfter        int // 消息数达到该值后 ShouldEnd 返回 true，0 表示永不结束
}

func (g *scriptedGenerator) Generate(ctx context.Context, systemPrompt string, history []llm.Message, scenarioContext string) (string, llm.Usage, error) {
	g.generateCalls++
	g.historySizes = append(g.historySizes, len(history))
	if g.failAtCall > 0 && g.generateCalls == g.failAtCall {
		return "", llm.Usage{}, errors.New("生成服务不可用")
	}
	return "第" + string(rune('0'+g.generateCalls)) + "条发言", llm.Usage{Model: "stub-model", TotalTokens: 42}, nil
}

func (g *scriptedGenerator) EvaluateCompatibility(ctx context.Context, content string, senderProfile, receiverProfile string, history []llm.Message) (llm.Evaluation, error) {
	return llm.Evaluation{
		LoveDelta:       g.loveDelta,
		FriendshipDelta: g.friendshipDelta,
		Reason:          "相谈甚欢",
		Model:           "stub-model",
	}, nil
}

func (g *scriptedGenerator) ShouldEnd(ctx context.Context, history []llm.Message, scenarioContext string) (bool, error) {
	return g.endAfter > 0 && g.generateCalls >= g.endAfter, nil
}

// ==================== 测试环境组装 ====================

type roundFixture struct {
	service   *Service
	relations *stubRelationRepo
	convs     *stubConversationRepo
	evals     *stubEvaluationRepo
	agents    *stubAgentRepo
}

func newRoundFixture(generator llm.Generator) *roundFixture {
	relations := &stubRelationRepo{
		relation: &model.MatchRelation{
			Uuid:               "R_test",
			InitiatorUserUuid:  "U_one",
			TargetUserUuid:     "U_two",
			InitiatorAgentUuid: "A_one",
			TargetAgentUuid:    "A_two",
			MatchType:          model.MarketTypeLove,
			Status:             model.RelationStatusActive,
		},
	}
	scenarios := &stubScenarioRepo{
		scenarios: []model.Scenario{{
			Uuid:        "N_cafe",
			Name:        "咖啡馆偶遇",
			ContextText: "你们在一家安静的咖啡馆相遇",
			IsActive:    true,
		}},
	}
	agents := &stubAgentRepo{agents: map[string]*model.MarketAgent{
		"A_one": {Uuid: "A_one", UserUuid: "U_one", PersonaUuid: "P_one", DisplayName: "小北"},
		"A_two": {Uuid: "A_two", UserUuid: "U_two", PersonaUuid: "P_two", DisplayName: "阿南"},
	}}
	personas := &stubPersonaRepo{personas: map[string]*model.DigitalPersona{
		"P_one": {Uuid: "P_one", Name: "小北", SystemPrompt: "你叫小北，开朗健谈"},
		"P_two": {Uuid: "P_two", Name: "阿南", SystemPrompt: "你叫阿南，安静细腻"},
	}}
	convs := newStubConversationRepo()
	evals := &stubEvaluationRepo{}

	repos := mysql.NewRepositoriesFromParts(nil, nil, nil, relations, agents, personas, scenarios, convs, evals)
	return &roundFixture{
		service:   NewService(repos, generator),
		relations: relations,
		convs:     convs,
		evals:     evals,
		agents:    agents,
	}
}

// ==================== 回合状态机测试 ====================

func TestRunConversationExhaustsMaxTurns(t *testing.T) {
	generator := &scriptedGenerator{loveDelta: 3, friendshipDelta: 2}
	fixture := newRoundFixture(generator)

	result, err := fixture.service.RunConversation(context.Background(), "R_test", "N_cafe", 6)
	if err != nil {
		t.Fatal(err)
	}
	if result["termination_reason"] != model.TerminationMaxTurns {
		t.Fatalf("应以 max_turns 结束, got %v", result["termination_reason"])
	}
	if result["actual_turns"] != 6 {
		t.Fatalf("应产生 6 条消息, got %v", result["actual_turns"])
	}
	if len(fixture.convs.messages) != 6 || len(fixture.evals.evaluations) != 6 {
		t.Fatalf("消息和评估应各落库 6 条, got %d / %d",
			len(fixture.convs.messages), len(fixture.evals.evaluations))
	}

	// 双方交替发言，序号密集递增
	for i, message := range fixture.convs.messages {
		if message.MessageIndex != i {
			t.Errorf("第 %d 条消息序号错误: %d", i, message.MessageIndex)
		}
		if i > 0 && message.SenderAgentUuid == fixture.convs.messages[i-1].SenderAgentUuid {
			t.Errorf("第 %d 条消息未交替发言方", i)
		}
	}

	if !fixture.relations.applied {
		t.Fatal("回合完成后应推进关系")
	}
	if fixture.relations.appliedLove != 18 || fixture.relations.appliedFriendship != 12 {
		t.Fatalf("累计增量错误: love=%v friendship=%v",
			fixture.relations.appliedLove, fixture.relations.appliedFriendship)
	}
	if len(fixture.agents.touched) != 2 {
		t.Errorf("双方代理都应刷新互动时间, got %v", fixture.agents.touched)
	}

	updates := fixture.convs.updates[result["conversation_id"].(string)]
	if updates["status"] != model.ConversationStatusCompleted {
		t.Fatalf("回合应为 completed, got %v", updates["status"])
	}
}

func TestRunConversationNaturalEnd(t *testing.T) {
	generator := &scriptedGenerator{loveDelta: 1, endAfter: 4}
	fixture := newRoundFixture(generator)

	result, err := fixture.service.RunConversation(context.Background(), "R_test", "N_cafe", 12)
	if err != nil {
		t.Fatal(err)
	}
	if result["termination_reason"] != model.TerminationNaturalEnd {
		t.Fatalf("应以 natural_end 结束, got %v", result["termination_reason"])
	}
	if result["actual_turns"] != 4 {
		t.Fatalf("自然结束最早应出现在第 4 条消息后, got %v", result["actual_turns"])
	}
}

func TestRunConversationClampsEvaluationDeltas(t *testing.T) {
	generator := &scriptedGenerator{loveDelta: 50, friendshipDelta: -50}
	fixture := newRoundFixture(generator)

	if _, err := fixture.service.RunConversation(context.Background(), "R_test", "N_cafe", 6); err != nil {
		t.Fatal(err)
	}
	for _, eval := range fixture.evals.evaluations {
		if eval.LoveDelta != 10 || eval.FriendshipDelta != -10 {
			t.Fatalf("增量未限幅: %+v", eval)
		}
	}
	if fixture.relations.appliedLove != 60 || fixture.relations.appliedFriendship != -60 {
		t.Fatalf("累计值应为限幅后求和: love=%v friendship=%v",
			fixture.relations.appliedLove, fixture.relations.appliedFriendship)
	}
}

func TestRunConversationRescheduleWindow(t *testing.T) {
	generator := &scriptedGenerator{}
	fixture := newRoundFixture(generator)
	completedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fixture.service.now = func() time.Time { return completedAt }

	if _, err := fixture.service.RunConversation(context.Background(), "R_test", "N_cafe", 6); err != nil {
		t.Fatal(err)
	}
	gap := fixture.relations.appliedNextAt.Sub(completedAt)
	if gap < 24*time.Hour || gap > 72*time.Hour {
		t.Fatalf("下次调度时间应在 24 到 72 小时之间, got %v", gap)
	}
}

func TestRunConversationContextWindow(t *testing.T) {
	generator := &scriptedGenerator{}
	fixture := newRoundFixture(generator)

	if _, err := fixture.service.RunConversation(context.Background(), "R_test", "N_cafe", 10); err != nil {
		t.Fatal(err)
	}
	for i, size := range generator.historySizes {
		expected := i
		if expected > 6 {
			expected = 6
		}
		if size != expected {
			t.Fatalf("第 %d 轮上下文长度应为 %d, got %d", i, expected, size)
		}
	}
}

func TestRunConversationFailureKeepsCommittedTurns(t *testing.T) {
	generator := &scriptedGenerator{failAtCall: 3}
	fixture := newRoundFixture(generator)

	_, err := fixture.service.RunConversation(context.Background(), "R_test", "N_cafe", 6)
	if err == nil {
		t.Fatal("生成失败应上抛错误")
	}
	if errorx.GetCode(err) != errorx.CodeGenerationFailure {
		t.Fatalf("错误码应为生成失败, got %d", errorx.GetCode(err))
	}

	if len(fixture.convs.messages) != 2 {
		t.Fatalf("失败前已提交的 2 条消息应保留, got %d", len(fixture.convs.messages))
	}
	if fixture.relations.applied {
		t.Fatal("失败回合不应推进关系")
	}

	var failedUpdate map[string]interface{}
	for _, updates := range fixture.convs.updates {
		failedUpdate = updates
	}
	if failedUpdate["status"] != model.ConversationStatusFailed {
		t.Fatalf("回合应为 failed, got %v", failedUpdate["status"])
	}
	reason, _ := failedUpdate["termination_reason"].(string)
	if !strings.Contains(reason, "生成服务不可用") {
		t.Fatalf("失败原因应包含错误文本, got %q", reason)
	}
}

func TestValidateRelationRejectsInactive(t *testing.T) {
	generator := &scriptedGenerator{}
	fixture := newRoundFixture(generator)
	fixture.relations.relation.Status = model.RelationStatusPaused

	if _, err := fixture.service.ValidateRelation("R_test"); err == nil {
		t.Fatal("非活跃关系应校验失败")
	}
	if _, err := fixture.service.ValidateRelation("R_missing"); errorx.GetCode(err) != errorx.CodeNotFound {
		t.Fatal("不存在的关系应返回未找到")
	}
}
