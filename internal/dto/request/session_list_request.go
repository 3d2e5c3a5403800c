package request

// SessionListRequest 查询用户会话列表请求
// 使用位置:
//   - internal/handler/session_handler.go: GetSessionList
type SessionListRequest struct {
	UserId string `form:"user_id" binding:"required"`
}
