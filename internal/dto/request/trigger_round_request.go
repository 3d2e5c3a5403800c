package request

// TriggerRoundRequest 手动触发自动对话回合请求
// 使用位置:
//   - internal/handler/match_handler.go: TriggerRound
type TriggerRoundRequest struct {
	RelationId string `json:"relation_id" binding:"required"`
	// MaxTurns 可选，不传时随机取 6-12
	MaxTurns int `json:"max_turns"`
}
