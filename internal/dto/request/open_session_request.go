package request

// OpenSessionRequest 打开会话请求
// 使用位置:
//   - internal/handler/session_handler.go: OpenSession
//   - internal/service/session/service.go: OpenSession
type OpenSessionRequest struct {
	UserId string `json:"user_id" binding:"required"`
	PeerId string `json:"peer_id" binding:"required"`
}
