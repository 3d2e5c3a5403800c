package chat

import (
	"context"

	"soullink_server/internal/config"
)

// EventBroker 入站事件的投递通道
// channel 模式走进程内通道，kafka 模式走消息队列，两种模式最终都
// 回到 Hub.Dispatch
type EventBroker interface {
	// Publish 发布一条入站事件信封
	Publish(ctx context.Context, envelope []byte) error
	// Start 启动消费循环，阻塞直到 Close
	Start()
	// Close 关闭投递通道
	Close()
}

// NewEventBroker 按配置的 messageMode 构造事件代理
func NewEventBroker(hub *Hub) EventBroker {
	kafkaConfig := config.GetConfig().KafkaConfig
	if kafkaConfig.MessageMode == "kafka" {
		return NewKafkaBroker(hub)
	}
	return NewChannelBroker(hub)
}
