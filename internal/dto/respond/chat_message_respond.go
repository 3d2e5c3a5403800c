package respond

// ChatMessageRespond 持久化后的聊天消息响应
// 使用位置:
//   - internal/service/session/service.go: AppendMessage / GetMessageList
//   - internal/service/chat/hub.go: 消息广播
type ChatMessageRespond struct {
	MessageId      string `json:"message_id"`
	SessionId      string `json:"session_id"`
	SequenceNumber int64  `json:"sequence_number"`
	SenderId       string `json:"sender_id"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	IsRead         bool   `json:"is_read"`
	CreatedAt      string `json:"created_at"`
}
