// Package chat 负责实时会话的在线状态与消息扇出
package chat

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"soullink_server/internal/dto/request"
	"soullink_server/internal/dto/respond"
	"soullink_server/internal/gateway/websocket"
	"soullink_server/pkg/constants"
)

// MessageStore 抽象会话消息的持久化入口，由 session 服务实现
type MessageStore interface {
	AppendMessage(sessionId, senderId, content, msgType string) (*respond.ChatMessageRespond, error)
	SetOnline(sessionId, userId string, online bool)
}

// Hub 维护 (会话, 用户) 到连接的注册表，并承担所有帧的扇出
// 同一 (会话, 用户) 只保留一条连接，新连接顶替旧连接
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*websocket.Client // sessionId -> userId -> client
	typing   map[string]map[string]time.Time         // sessionId -> userId -> 最近打字时间

	store     MessageStore
	typingTTL time.Duration

	now func() time.Time // 测试注入

	sweepOnce sync.Once
	sweepStop chan struct{}
}

func NewHub(store MessageStore) *Hub {
	return &Hub{
		sessions:  make(map[string]map[string]*websocket.Client),
		typing:    make(map[string]map[string]time.Time),
		store:     store,
		typingTTL: constants.TYPING_EXPIRE,
		now:       time.Now,
		sweepStop: make(chan struct{}),
	}
}

// Connect 注册一条新连接并完成接入握手
// 顺序固定：先注册，再向新连接回执，再把已在线的对端同步给新连接，
// 最后把自己的上线事件广播给其他人
func (h *Hub) Connect(client *websocket.Client) {
	h.mu.Lock()
	users, ok := h.sessions[client.SessionId]
	if !ok {
		users = make(map[string]*websocket.Client)
		h.sessions[client.SessionId] = users
	}
	replaced := users[client.UserId]
	users[client.UserId] = client

	var peers []string
	for userId := range users {
		if userId != client.UserId {
			peers = append(peers, userId)
		}
	}
	h.mu.Unlock()

	if replaced != nil {
		replaced.Close()
	}

	// 1. 私有回执
	client.Deliver(mustMarshal(respond.ChatEventRespond{
		Type:        "system",
		MessageText: "connected",
	}))
	// 2. 把已在线的对端同步给新连接
	for _, peerId := range peers {
		client.Deliver(mustMarshal(respond.ChatEventRespond{
			Type:      "user_status",
			SessionId: client.SessionId,
			UserId:    peerId,
			Status:    "online",
		}))
	}
	// 3. 自己的上线事件广播给其他人
	h.broadcast(client.SessionId, mustMarshal(respond.ChatEventRespond{
		Type:      "user_status",
		SessionId: client.SessionId,
		UserId:    client.UserId,
		Status:    "online",
	}), client.UserId)

	h.store.SetOnline(client.SessionId, client.UserId, true)
	zap.L().Info("WebSocket 连接接入",
		zap.String("session_id", client.SessionId),
		zap.String("user_id", client.UserId),
	)
}

// Disconnect 注销一条连接并广播下线事件
// 若该连接已被新连接顶替则静默返回，不产生重复的下线广播
func (h *Hub) Disconnect(client *websocket.Client) {
	h.mu.Lock()
	users, ok := h.sessions[client.SessionId]
	if !ok || users[client.UserId] != client {
		h.mu.Unlock()
		client.Close()
		return
	}
	delete(users, client.UserId)
	if len(users) == 0 {
		delete(h.sessions, client.SessionId)
	}
	if stamps, ok := h.typing[client.SessionId]; ok {
		delete(stamps, client.UserId)
		if len(stamps) == 0 {
			delete(h.typing, client.SessionId)
		}
	}
	h.mu.Unlock()

	client.Close()
	h.broadcast(client.SessionId, mustMarshal(respond.ChatEventRespond{
		Type:      "user_status",
		SessionId: client.SessionId,
		UserId:    client.UserId,
		Status:    "offline",
	}), client.UserId)

	h.store.SetOnline(client.SessionId, client.UserId, false)
	zap.L().Info("WebSocket 连接断开",
		zap.String("session_id", client.SessionId),
		zap.String("user_id", client.UserId),
	)
}

// Dispatch 处理消息代理投递的入站事件信封
func (h *Hub) Dispatch(envelope []byte) {
	var event request.ChatEventEnvelope
	if err := json.Unmarshal(envelope, &event); err != nil {
		zap.L().Error(err.Error())
		return
	}
	switch event.Type {
	case "message":
		h.handleMessage(event)
	case "typing":
		h.handleTyping(event)
	default:
		zap.L().Warn("丢弃未知类型的入站事件", zap.String("type", event.Type))
	}
}

// handleMessage 落库后把消息帧扇出给会话内所有连接（含发送方）
func (h *Hub) handleMessage(event request.ChatEventEnvelope) {
	if strings.TrimSpace(event.Content) == "" {
		return
	}
	message, err := h.store.AppendMessage(event.SessionId, event.UserId, event.Content, "text")
	if err != nil {
		zap.L().Error("消息落库失败",
			zap.String("session_id", event.SessionId),
			zap.String("user_id", event.UserId),
			zap.Error(err),
		)
		return
	}
	h.broadcast(event.SessionId, mustMarshal(respond.ChatEventRespond{
		Type:    "message",
		Message: message,
	}), "")
}

// handleTyping 记录打字时间戳并把状态同步给对端
func (h *Hub) handleTyping(event request.ChatEventEnvelope) {
	h.mu.Lock()
	if event.IsTyping {
		stamps, ok := h.typing[event.SessionId]
		if !ok {
			stamps = make(map[string]time.Time)
			h.typing[event.SessionId] = stamps
		}
		stamps[event.UserId] = h.now()
	} else {
		if stamps, ok := h.typing[event.SessionId]; ok {
			delete(stamps, event.UserId)
			if len(stamps) == 0 {
				delete(h.typing, event.SessionId)
			}
		}
	}
	h.mu.Unlock()

	isTyping := event.IsTyping
	h.broadcast(event.SessionId, mustMarshal(respond.ChatEventRespond{
		Type:      "typing",
		SessionId: event.SessionId,
		UserId:    event.UserId,
		IsTyping:  &isTyping,
	}), event.UserId)
}

// broadcast 向会话内的连接扇出一帧，excludeUserId 不为空时跳过该用户
// 投递失败的连接原地注销，不再补发下线广播
func (h *Hub) broadcast(sessionId string, payload []byte, excludeUserId string) {
	h.mu.RLock()
	var targets []*websocket.Client
	for userId, client := range h.sessions[sessionId] {
		if userId == excludeUserId {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	var failed []*websocket.Client
	for _, client := range targets {
		if !client.Deliver(payload) {
			failed = append(failed, client)
		}
	}
	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	for _, client := range failed {
		users, ok := h.sessions[client.SessionId]
		if ok && users[client.UserId] == client {
			delete(users, client.UserId)
			if len(users) == 0 {
				delete(h.sessions, client.SessionId)
			}
		}
	}
	h.mu.Unlock()
	for _, client := range failed {
		client.Close()
		zap.L().Warn("投递失败，连接已静默注销",
			zap.String("session_id", client.SessionId),
			zap.String("user_id", client.UserId),
		)
	}
}

// StartTypingSweeper 启动打字状态的过期清扫协程，只会启动一次
func (h *Hub) StartTypingSweeper() {
	h.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(constants.TYPING_SWEEP_INTERVAL)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					h.sweepTyping(h.now())
				case <-h.sweepStop:
					return
				}
			}
		}()
	})
}

// StopTypingSweeper 停止清扫协程
func (h *Hub) StopTypingSweeper() {
	select {
	case <-h.sweepStop:
	default:
		close(h.sweepStop)
	}
}

// sweepTyping 把超过 typingTTL 未刷新的打字状态清除并广播取消帧
func (h *Hub) sweepTyping(now time.Time) {
	type expired struct {
		sessionId string
		userId    string
	}
	var stale []expired

	h.mu.Lock()
	for sessionId, stamps := range h.typing {
		for userId, last := range stamps {
			if now.Sub(last) > h.typingTTL {
				delete(stamps, userId)
				stale = append(stale, expired{sessionId: sessionId, userId: userId})
			}
		}
		if len(stamps) == 0 {
			delete(h.typing, sessionId)
		}
	}
	h.mu.Unlock()

	for _, e := range stale {
		isTyping := false
		h.broadcast(e.sessionId, mustMarshal(respond.ChatEventRespond{
			Type:      "typing",
			SessionId: e.sessionId,
			UserId:    e.userId,
			IsTyping:  &isTyping,
		}), e.userId)
	}
}

// OnlineUsers 返回会话内当前在线的用户
func (h *Hub) OnlineUsers(sessionId string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var users []string
	for userId := range h.sessions[sessionId] {
		users = append(users, userId)
	}
	return users
}

func mustMarshal(v respond.ChatEventRespond) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		zap.L().Error(err.Error())
		return []byte("{}")
	}
	return payload
}
