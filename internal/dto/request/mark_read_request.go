package request

// MarkReadRequest 标记已读请求
// UpToSequence 为 0 时标记会话内全部未读消息
// 使用位置:
//   - internal/handler/message_handler.go: MarkRead
type MarkReadRequest struct {
	SessionId    string `json:"session_id" binding:"required"`
	UserId       string `json:"user_id" binding:"required"`
	UpToSequence int64  `json:"up_to_sequence"`
}
