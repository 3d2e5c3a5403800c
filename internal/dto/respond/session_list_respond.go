package respond

// SessionListRespond 用户会话列表响应
// 使用位置:
//   - internal/service/session/service.go: GetSessionList
type SessionListRespond struct {
	SessionId     string `json:"session_id"`
	PeerId        string `json:"peer_id"`
	PeerOnline    bool   `json:"peer_online"`
	MessageCount  int64  `json:"message_count"`
	LastMessageAt string `json:"last_message_at"`
	Status        string `json:"status"`
}
