package respond

// ChatEventRespond WebSocket 出站帧
// 四种帧型共用一个结构，按 Type 取用字段：
//
//	message:     {"type":"message","message":{...}}
//	typing:      {"type":"typing","session_id":...,"user_id":...,"is_typing":bool}
//	user_status: {"type":"user_status","session_id":...,"user_id":...,"status":"online"|"offline"}
//	system:      {"type":"system","message_text":"connected"}
//
// 使用位置:
//   - internal/service/chat/hub.go: 各类广播
type ChatEventRespond struct {
	Type        string              `json:"type"`
	SessionId   string              `json:"session_id,omitempty"`
	UserId      string              `json:"user_id,omitempty"`
	Status      string              `json:"status,omitempty"`
	IsTyping    *bool               `json:"is_typing,omitempty"`
	Message     *ChatMessageRespond `json:"message,omitempty"`
	MessageText string              `json:"message_text,omitempty"`
}
