package request

// ChatEventRequest WebSocket 入站帧
// 客户端只会发送两种帧：
//
//	{"type": "message", "content": "..."}
//	{"type": "typing", "is_typing": true}
//
// 会话与用户身份来自连接建立时的查询参数，不信任帧内字段
// 使用位置:
//   - internal/gateway/websocket/client.go: readPump
//   - internal/service/chat/hub.go: Dispatch
type ChatEventRequest struct {
	Type     string `json:"type" binding:"required"`
	Content  string `json:"content"`
	IsTyping bool   `json:"is_typing"`
}

// ChatEventEnvelope 经消息代理投递的入站事件信封
// 由网关在入站帧上补充会话与用户身份后发布
type ChatEventEnvelope struct {
	SessionId string `json:"session_id"`
	UserId    string `json:"user_id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	IsTyping  bool   `json:"is_typing"`
}
