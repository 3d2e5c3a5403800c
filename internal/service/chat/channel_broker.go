package chat

import (
	"context"
	"sync"

	"soullink_server/pkg/constants"
)

// ChannelBroker 进程内通道模式的事件代理，单机部署时使用
type ChannelBroker struct {
	hub      *Hub
	transmit chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewChannelBroker(hub *Hub) *ChannelBroker {
	return &ChannelBroker{
		hub:      hub,
		transmit: make(chan []byte, constants.CHANNEL_SIZE),
		done:     make(chan struct{}),
	}
}

// Publish 把事件写入进程内通道，代理已关闭时丢弃
func (b *ChannelBroker) Publish(ctx context.Context, envelope []byte) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case b.transmit <- envelope:
		return nil
	}
}

// Start 消费通道并逐条交给 Hub，Close 后退出
func (b *ChannelBroker) Start() {
	for {
		select {
		case <-b.done:
			return
		case envelope := <-b.transmit:
			b.hub.Dispatch(envelope)
		}
	}
}

// Close 只关闭 done 信号，transmit 保持打开
// 读协程可能在关闭后仍投递迟到的帧，写入打开的通道最多被丢弃，不会 panic
func (b *ChannelBroker) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
