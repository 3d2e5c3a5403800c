package request

// GetMessageListRequest 查询会话消息列表请求
// 使用位置:
//   - internal/handler/message_handler.go: GetMessageList
type GetMessageListRequest struct {
	SessionId string `form:"session_id" binding:"required"`
	UserId    string `form:"user_id" binding:"required"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}
