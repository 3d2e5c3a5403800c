package websocket

import (
	"testing"

	"soullink_server/pkg/constants"
)

func TestDeliverBuffersUntilFull(t *testing.T) {
	client := NewClient(nil, "S1", "alice")
	for i := 0; i < constants.CHANNEL_SIZE; i++ {
		if !client.Deliver([]byte("frame")) {
			t.Fatalf("第 %d 帧不应投递失败", i+1)
		}
	}
	if client.Deliver([]byte("overflow")) {
		t.Fatal("缓冲已满时应返回 false")
	}
}

func TestDeliverAfterClose(t *testing.T) {
	client := NewClient(nil, "S1", "alice")
	client.Close()
	if client.Deliver([]byte("frame")) {
		t.Fatal("连接关闭后不应再接收投递")
	}
}

func TestCloseIdempotent(t *testing.T) {
	client := NewClient(nil, "S1", "alice")
	client.Close()
	client.Close() // 重复关闭不应 panic

	if _, ok := <-client.Send; ok {
		t.Fatal("关闭后 Send 通道应已关闭")
	}
}
