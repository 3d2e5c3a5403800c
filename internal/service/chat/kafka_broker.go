package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	myconfig "soullink_server/internal/config"
	"soullink_server/internal/dto/request"
)

// KafkaBroker 消息队列模式的事件代理，多实例部署时使用
// 每个实例都消费同一个消费组，事件经 Hub 只会扇出给本实例持有的连接
type KafkaBroker struct {
	hub    *Hub
	writer *kafka.Writer
	reader *kafka.Reader

	closeOnce sync.Once
	done      chan struct{}
}

func NewKafkaBroker(hub *Hub) *KafkaBroker {
	kafkaConfig := myconfig.GetConfig().KafkaConfig
	return &KafkaBroker{
		hub: hub,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(kafkaConfig.HostPort),
			Topic:                  kafkaConfig.ChatTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           kafkaConfig.Timeout * time.Second,
			RequiredAcks:           kafka.RequireNone,
			AllowAutoTopicCreation: false,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{kafkaConfig.HostPort},
			Topic:          kafkaConfig.ChatTopic,
			CommitInterval: kafkaConfig.Timeout * time.Second,
			GroupID:        "chat",
			StartOffset:    kafka.LastOffset,
		}),
		done: make(chan struct{}),
	}
}

// CreateTopic 创建聊天主题，已存在时由 Kafka 返回错误并忽略
func (b *KafkaBroker) CreateTopic() {
	kafkaConfig := myconfig.GetConfig().KafkaConfig
	conn, err := kafka.Dial("tcp", kafkaConfig.HostPort)
	if err != nil {
		zap.L().Error(err.Error())
		return
	}
	defer conn.Close()

	topicConfigs := []kafka.TopicConfig{
		{
			Topic:             kafkaConfig.ChatTopic,
			NumPartitions:     kafkaConfig.Partition,
			ReplicationFactor: 1,
		},
	}
	if err = conn.CreateTopics(topicConfigs...); err != nil {
		zap.L().Error(err.Error())
	}
}

// Publish 以会话 ID 为 key 写入 Kafka，同一会话的事件落在同一分区保序
func (b *KafkaBroker) Publish(ctx context.Context, envelope []byte) error {
	var event request.ChatEventEnvelope
	if err := json.Unmarshal(envelope, &event); err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionId),
		Value: envelope,
	})
}

// Start 消费循环，Close 后退出
func (b *KafkaBroker) Start() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(fmt.Sprintf("kafka broker panic: %v", r))
		}
	}()
	for {
		kafkaMessage, err := b.reader.ReadMessage(context.Background())
		if err != nil {
			select {
			case <-b.done:
				return
			default:
			}
			zap.L().Error(err.Error())
			continue
		}
		zap.L().Debug(fmt.Sprintf("topic=%s, partition=%d, offset=%d",
			kafkaMessage.Topic, kafkaMessage.Partition, kafkaMessage.Offset))
		b.hub.Dispatch(kafkaMessage.Value)
	}
}

func (b *KafkaBroker) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		if err := b.writer.Close(); err != nil {
			zap.L().Error(err.Error())
		}
		if err := b.reader.Close(); err != nil {
			zap.L().Error(err.Error())
		}
	})
}
