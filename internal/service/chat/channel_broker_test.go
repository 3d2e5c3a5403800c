package chat

import (
	"context"
	"testing"
	"time"

	"soullink_server/internal/dto/request"
	ws "soullink_server/internal/gateway/websocket"
	"soullink_server/pkg/constants"
)

func TestChannelBrokerDeliversToHub(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store)
	broker := NewChannelBroker(hub)
	go broker.Start()
	defer broker.Close()

	alice := ws.NewClient(nil, "S1", "U_alice")
	hub.Connect(alice)
	bob := ws.NewClient(nil, "S1", "U_bob")
	hub.Connect(bob)
	drainFrames(t, alice)
	drainFrames(t, bob)

	envelope := mustEnvelope(t, request.ChatEventEnvelope{
		SessionId: "S1",
		UserId:    "U_alice",
		Type:      "message",
		Content:   "你好",
	})
	if err := broker.Publish(context.Background(), envelope); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		if frames := drainFrames(t, bob); len(frames) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("事件未经通道送达对端")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChannelBrokerPublishAfterClose(t *testing.T) {
	hub := NewHub(newFakeStore())
	broker := NewChannelBroker(hub)
	go broker.Start()

	broker.Close()
	broker.Close() // 重复关闭不应 panic

	// 关闭后的迟到帧应被丢弃，超出缓冲容量也不应 panic 或阻塞
	for i := 0; i < constants.CHANNEL_SIZE+10; i++ {
		envelope := mustEnvelope(t, request.ChatEventEnvelope{
			SessionId: "S1",
			UserId:    "U_alice",
			Type:      "message",
			Content:   "迟到的帧",
		})
		if err := broker.Publish(context.Background(), envelope); err != nil {
			t.Fatalf("关闭后投递应静默丢弃, got %v", err)
		}
	}
}
