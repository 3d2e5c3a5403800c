package match

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"soullink_server/internal/llm"
	"soullink_server/internal/model"
	"soullink_server/pkg/constants"
	"soullink_server/pkg/errorx"
	"soullink_server/pkg/util/random"
)

// roundState 一个执行中回合的运行时状态
type roundState struct {
	conversationUuid string
	relation         *model.MatchRelation
	scenario         *model.Scenario

	// 两个槽位按 [发起方, 目标方] 排列，speaker 在其间交替
	agents   [2]*model.MarketAgent
	personas [2]*model.DigitalPersona
	speaker  int

	messages        []model.AutoConversationMessage
	loveDelta       float64
	friendshipDelta float64
}

// RunConversation 执行一个自动对话回合
// 任何生成或落库错误都会把回合置为失败并保留已提交的轮次，错误上抛给执行器
func (s *Service) RunConversation(ctx context.Context, relationUuid, scenarioUuid string, maxTurns int) (map[string]interface{}, error) {
	state, err := s.prepareRound(relationUuid, scenarioUuid, maxTurns)
	if err != nil {
		return nil, err
	}

	terminationReason, err := s.runTurns(ctx, state, maxTurns)
	if err != nil {
		s.failRound(state, err)
		return nil, err
	}

	if err := s.completeRound(state, terminationReason); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"conversation_id":    state.conversationUuid,
		"actual_turns":       len(state.messages),
		"termination_reason": terminationReason,
		"love_delta":         state.loveDelta,
		"friendship_delta":   state.friendshipDelta,
	}, nil
}

// prepareRound 校验关系、解析双方代理与人格，并落库一条 running 回合
func (s *Service) prepareRound(relationUuid, scenarioUuid string, maxTurns int) (*roundState, error) {
	relation, err := s.ValidateRelation(relationUuid)
	if err != nil {
		return nil, err
	}
	scenario, err := s.repos.Scenario.FindByUuid(scenarioUuid)
	if err != nil {
		return nil, err
	}

	state := &roundState{
		relation: relation,
		scenario: scenario,
		speaker:  s.randIntn(2), // 随机先手
	}
	agentUuids := [2]string{relation.InitiatorAgentUuid, relation.TargetAgentUuid}
	for i, agentUuid := range agentUuids {
		agent, err := s.repos.Agent.FindByUuid(agentUuid)
		if err != nil {
			return nil, err
		}
		persona, err := s.repos.Persona.FindByUuid(agent.PersonaUuid)
		if err != nil {
			return nil, err
		}
		state.agents[i] = agent
		state.personas[i] = persona
	}

	state.conversationUuid = fmt.Sprintf("C%s", random.GetNowAndLenRandomString(11))
	conv := &model.AutoConversation{
		Uuid:         state.conversationUuid,
		RelationUuid: relation.Uuid,
		ScenarioUuid: scenario.Uuid,
		MaxTurns:     maxTurns,
		Status:       model.ConversationStatusRunning,
		StartedAt:    sql.NullTime{Time: s.now(), Valid: true},
	}
	if err := s.repos.Conversation.CreateConversation(conv); err != nil {
		return nil, err
	}
	zap.L().Info("自动对话回合开始",
		zap.String("conversation_uuid", state.conversationUuid),
		zap.String("relation_uuid", relation.Uuid),
		zap.String("scenario_uuid", scenario.Uuid),
		zap.Int("max_turns", maxTurns),
	)
	return state, nil
}

// runTurns 驱动逐轮生成与评估，返回结束原因
func (s *Service) runTurns(ctx context.Context, state *roundState, maxTurns int) (string, error) {
	for turn := 0; turn < maxTurns; turn++ {
		if err := s.runOneTurn(ctx, state, turn); err != nil {
			return "", err
		}

		if len(state.messages) >= constants.ROUND_MIN_TURNS_BEFORE_END && len(state.messages) < maxTurns {
			shouldEnd, err := s.generator.ShouldEnd(ctx, state.historyFor(state.speaker), state.scenario.ContextText)
			if err != nil {
				// 结束判定失败不终止回合
				zap.L().Warn("自然结束判定失败", zap.Error(err))
				shouldEnd = false
			}
			if shouldEnd {
				return model.TerminationNaturalEnd, nil
			}
		}
		state.speaker = 1 - state.speaker
	}
	return model.TerminationMaxTurns, nil
}

// runOneTurn 当前发言方生成一条消息，评估后落库
func (s *Service) runOneTurn(ctx context.Context, state *roundState, turn int) error {
	speaker := state.speaker
	listener := 1 - speaker

	content, usage, err := s.generator.Generate(ctx,
		state.personas[speaker].SystemPrompt,
		state.historyFor(speaker),
		state.scenario.ContextText,
	)
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeGenerationFailure, "第 %d 轮发言生成失败", turn)
	}

	message := model.AutoConversationMessage{
		ConversationUuid: state.conversationUuid,
		SenderAgentUuid:  state.agents[speaker].Uuid,
		Content:          content,
		MessageIndex:     turn,
		ModelUsed:        usage.Model,
		TokensUsed:       usage.TotalTokens,
	}
	if err := s.repos.Conversation.CreateMessage(&message); err != nil {
		return err
	}
	state.messages = append(state.messages, message)

	evaluation, err := s.generator.EvaluateCompatibility(ctx, content,
		agentProfile(state.agents[speaker], state.personas[speaker]),
		agentProfile(state.agents[listener], state.personas[listener]),
		state.historyFor(speaker),
	)
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeGenerationFailure, "第 %d 轮契合度评估失败", turn)
	}
	loveDelta := clampDelta(evaluation.LoveDelta)
	friendshipDelta := clampDelta(evaluation.FriendshipDelta)

	if err := s.repos.Evaluation.CreateEvaluation(&model.MatchEvaluation{
		ConversationUuid: state.conversationUuid,
		MessageIndex:     turn,
		LoveDelta:        loveDelta,
		FriendshipDelta:  friendshipDelta,
		Reason:           evaluation.Reason,
		EvaluatorModel:   evaluation.Model,
	}); err != nil {
		return err
	}
	state.loveDelta += loveDelta
	state.friendshipDelta += friendshipDelta
	return nil
}

// historyFor 把最近若干轮消息映射为 speaker 视角的对话上下文
// speaker 自己的发言映射为 assistant，对方的发言映射为 user
func (state *roundState) historyFor(speaker int) []llm.Message {
	start := 0
	if len(state.messages) > constants.ROUND_CONTEXT_TURNS {
		start = len(state.messages) - constants.ROUND_CONTEXT_TURNS
	}
	var history []llm.Message
	for _, message := range state.messages[start:] {
		role := "user"
		if message.SenderAgentUuid == state.agents[speaker].Uuid {
			role = "assistant"
		}
		history = append(history, llm.Message{Role: role, Content: message.Content})
	}
	return history
}

// completeRound 回合收尾：写回结果并推进关系的累计分数与调度时间
func (s *Service) completeRound(state *roundState, terminationReason string) error {
	endedAt := s.now()
	if err := s.repos.Conversation.UpdateByUuid(state.conversationUuid, map[string]interface{}{
		"status":             model.ConversationStatusCompleted,
		"ended_at":           endedAt,
		"actual_turns":       len(state.messages),
		"termination_reason": terminationReason,
		"love_delta":         state.loveDelta,
		"friendship_delta":   state.friendshipDelta,
	}); err != nil {
		return err
	}

	nextAt := s.nextScheduleTime(endedAt)
	if err := s.repos.Relation.ApplyRoundResult(state.relation.Uuid,
		state.loveDelta, state.friendshipDelta, endedAt, nextAt); err != nil {
		return err
	}
	for _, agent := range state.agents {
		if err := s.repos.Agent.TouchInteraction(agent.Uuid, endedAt); err != nil {
			zap.L().Error(err.Error())
		}
	}

	zap.L().Info("自动对话回合完成",
		zap.String("conversation_uuid", state.conversationUuid),
		zap.Int("actual_turns", len(state.messages)),
		zap.String("termination_reason", terminationReason),
		zap.Float64("love_delta", state.loveDelta),
		zap.Float64("friendship_delta", state.friendshipDelta),
		zap.Time("next_scheduled_at", nextAt),
	)
	return nil
}

// failRound 把回合置为失败并记录错误文本，已提交的轮次保持不变
func (s *Service) failRound(state *roundState, cause error) {
	if err := s.repos.Conversation.UpdateByUuid(state.conversationUuid, map[string]interface{}{
		"status":             model.ConversationStatusFailed,
		"ended_at":           s.now(),
		"actual_turns":       len(state.messages),
		"termination_reason": cause.Error(),
	}); err != nil {
		zap.L().Error(err.Error())
	}
	zap.L().Error("自动对话回合失败",
		zap.String("conversation_uuid", state.conversationUuid),
		zap.Int("actual_turns", len(state.messages)),
		zap.Error(cause),
	)
}

// nextScheduleTime 抽取下次调度时间，区间为完成时刻后 24 到 72 小时
func (s *Service) nextScheduleTime(from time.Time) time.Time {
	span := constants.RESCHEDULE_MAX - constants.RESCHEDULE_MIN
	offset := time.Duration(s.randFloat64() * float64(span))
	return from.Add(constants.RESCHEDULE_MIN + offset)
}

func clampDelta(delta float64) float64 {
	if delta > constants.SCORE_DELTA_LIMIT {
		return constants.SCORE_DELTA_LIMIT
	}
	if delta < -constants.SCORE_DELTA_LIMIT {
		return -constants.SCORE_DELTA_LIMIT
	}
	return delta
}
