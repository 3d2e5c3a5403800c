package chat

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"soullink_server/internal/dto/request"
	"soullink_server/internal/dto/respond"
	ws "soullink_server/internal/gateway/websocket"
)

// fakeStore 记录落库调用，不依赖数据库
type fakeStore struct {
	mu       sync.Mutex
	appended []string
	online   map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{online: make(map[string]bool)}
}

func (f *fakeStore) AppendMessage(sessionId, senderId, content, msgType string) (*respond.ChatMessageRespond, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, content)
	return &respond.ChatMessageRespond{
		MessageId:      "1",
		SessionId:      sessionId,
		SequenceNumber: int64(len(f.appended)),
		SenderId:       senderId,
		Content:        content,
		Type:           msgType,
	}, nil
}

func (f *fakeStore) SetOnline(sessionId, userId string, online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[sessionId+"_"+userId] = online
}

func (f *fakeStore) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

// drainFrames 取出连接出站通道里当前积压的所有帧
func drainFrames(t *testing.T, client *ws.Client) []respond.ChatEventRespond {
	t.Helper()
	var frames []respond.ChatEventRespond
	for {
		select {
		case payload := <-client.Send:
			var frame respond.ChatEventRespond
			if err := json.Unmarshal(payload, &frame); err != nil {
				t.Fatalf("解析出站帧失败: %v", err)
			}
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func mustEnvelope(t *testing.T, event request.ChatEventEnvelope) []byte {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestConnectOrdering(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store)

	alice := ws.NewClient(nil, "S1", "U_alice")
	hub.Connect(alice)

	frames := drainFrames(t, alice)
	if len(frames) != 1 || frames[0].Type != "system" || frames[0].MessageText != "connected" {
		t.Fatalf("首个连接应只收到 system 回执, got %+v", frames)
	}

	bob := ws.NewClient(nil, "S1", "U_bob")
	hub.Connect(bob)

	bobFrames := drainFrames(t, bob)
	if len(bobFrames) != 2 {
		t.Fatalf("第二个连接应收到回执和对端在线帧, got %+v", bobFrames)
	}
	if bobFrames[0].Type != "system" {
		t.Errorf("第一帧应为 system 回执, got %+v", bobFrames[0])
	}
	if bobFrames[1].Type != "user_status" || bobFrames[1].UserId != "U_alice" || bobFrames[1].Status != "online" {
		t.Errorf("第二帧应为对端在线, got %+v", bobFrames[1])
	}

	aliceFrames := drainFrames(t, alice)
	if len(aliceFrames) != 1 || aliceFrames[0].Type != "user_status" || aliceFrames[0].UserId != "U_bob" {
		t.Errorf("已在线连接应收到新人上线广播, got %+v", aliceFrames)
	}

	if !store.online["S1_U_alice"] || !store.online["S1_U_bob"] {
		t.Error("接入后在线标记未落库")
	}
}

func TestDisconnectBroadcastsOfflineOnce(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store)

	alice := ws.NewClient(nil, "S1", "U_alice")
	bob := ws.NewClient(nil, "S1", "U_bob")
	hub.Connect(alice)
	hub.Connect(bob)
	drainFrames(t, alice)
	drainFrames(t, bob)

	hub.Disconnect(bob)
	hub.Disconnect(bob) // 重复注销应静默

	frames := drainFrames(t, alice)
	offline := 0
	for _, frame := range frames {
		if frame.Type == "user_status" && frame.Status == "offline" {
			offline++
		}
	}
	if offline != 1 {
		t.Fatalf("下线广播应只有一次, got %d (%+v)", offline, frames)
	}
	if store.online["S1_U_bob"] {
		t.Error("注销后在线标记未清除")
	}
}

func TestDispatchMessageFanout(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store)

	alice := ws.NewClient(nil, "S1", "U_alice")
	bob := ws.NewClient(nil, "S1", "U_bob")
	hub.Connect(alice)
	hub.Connect(bob)
	drainFrames(t, alice)
	drainFrames(t, bob)

	hub.Dispatch(mustEnvelope(t, request.ChatEventEnvelope{
		SessionId: "S1",
		UserId:    "U_alice",
		Type:      "message",
		Content:   "你好",
	}))

	for _, client := range []*ws.Client{alice, bob} {
		frames := drainFrames(t, client)
		if len(frames) != 1 || frames[0].Type != "message" {
			t.Fatalf("双方都应收到消息帧, got %+v", frames)
		}
		if frames[0].Message == nil || frames[0].Message.Content != "你好" {
			t.Fatalf("消息内容不符, got %+v", frames[0].Message)
		}
	}
	if store.appendCount() != 1 {
		t.Fatalf("消息应落库一次, got %d", store.appendCount())
	}
}

func TestDispatchDropsBlankMessage(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store)

	alice := ws.NewClient(nil, "S1", "U_alice")
	hub.Connect(alice)
	drainFrames(t, alice)

	hub.Dispatch(mustEnvelope(t, request.ChatEventEnvelope{
		SessionId: "S1",
		UserId:    "U_alice",
		Type:      "message",
		Content:   "   \n\t ",
	}))

	if store.appendCount() != 0 {
		t.Fatal("空白消息不应落库")
	}
	if frames := drainFrames(t, alice); len(frames) != 0 {
		t.Fatalf("空白消息不应扇出, got %+v", frames)
	}
}

func TestTypingBroadcastAndExpiry(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store)
	current := time.Now()
	hub.now = func() time.Time { return current }

	alice := ws.NewClient(nil, "S1", "U_alice")
	bob := ws.NewClient(nil, "S1", "U_bob")
	hub.Connect(alice)
	hub.Connect(bob)
	drainFrames(t, alice)
	drainFrames(t, bob)

	hub.Dispatch(mustEnvelope(t, request.ChatEventEnvelope{
		SessionId: "S1",
		UserId:    "U_alice",
		Type:      "typing",
		IsTyping:  true,
	}))

	frames := drainFrames(t, bob)
	if len(frames) != 1 || frames[0].Type != "typing" || frames[0].IsTyping == nil || !*frames[0].IsTyping {
		t.Fatalf("对端应收到打字帧, got %+v", frames)
	}
	if frames := drainFrames(t, alice); len(frames) != 0 {
		t.Fatalf("打字帧不应回显给发送方, got %+v", frames)
	}

	// 未超时不清扫
	hub.sweepTyping(current.Add(10 * time.Second))
	if frames := drainFrames(t, bob); len(frames) != 0 {
		t.Fatalf("未超时不应有取消帧, got %+v", frames)
	}

	hub.sweepTyping(current.Add(31 * time.Second))
	frames = drainFrames(t, bob)
	if len(frames) != 1 || frames[0].Type != "typing" || frames[0].IsTyping == nil || *frames[0].IsTyping {
		t.Fatalf("超时后应广播取消打字帧, got %+v", frames)
	}

	// 清扫后状态已删除，再次清扫不应重复广播
	hub.sweepTyping(current.Add(time.Minute))
	if frames := drainFrames(t, bob); len(frames) != 0 {
		t.Fatalf("重复清扫不应再广播, got %+v", frames)
	}
}

func TestBroadcastFailureUnregistersSilently(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store)

	alice := ws.NewClient(nil, "S1", "U_alice")
	bob := ws.NewClient(nil, "S1", "U_bob")
	hub.Connect(alice)
	hub.Connect(bob)
	drainFrames(t, alice)
	drainFrames(t, bob)

	// 连接已关闭时投递必然失败
	bob.Close()
	hub.Dispatch(mustEnvelope(t, request.ChatEventEnvelope{
		SessionId: "S1",
		UserId:    "U_alice",
		Type:      "message",
		Content:   "还在吗",
	}))

	users := hub.OnlineUsers("S1")
	if len(users) != 1 || users[0] != "U_alice" {
		t.Fatalf("投递失败的连接应被注销, got %v", users)
	}

	frames := drainFrames(t, alice)
	for _, frame := range frames {
		if frame.Type == "user_status" {
			t.Fatalf("静默注销不应广播下线帧, got %+v", frame)
		}
	}
}

func TestReconnectReplacesOldClient(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store)

	first := ws.NewClient(nil, "S1", "U_alice")
	hub.Connect(first)
	second := ws.NewClient(nil, "S1", "U_alice")
	hub.Connect(second)

	if users := hub.OnlineUsers("S1"); len(users) != 1 {
		t.Fatalf("同一用户应只保留一条连接, got %v", users)
	}
	if first.Deliver([]byte("{}")) {
		t.Error("被顶替的旧连接应已关闭")
	}

	// 旧连接的延迟注销不应影响新连接
	hub.Disconnect(first)
	if users := hub.OnlineUsers("S1"); len(users) != 1 {
		t.Fatalf("旧连接注销不应移除新连接, got %v", users)
	}
}

// fakeStore 满足 MessageStore 接口
var _ MessageStore = (*fakeStore)(nil)
