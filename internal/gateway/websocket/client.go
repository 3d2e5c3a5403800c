// Package websocket 管理 WebSocket 连接的生命周期
// 1. 升级 HTTP 连接 (Upgrade)
// 2. 封装 Client 对象，管理读写协程 (Read/Write Loop)
// 3. 通过回调解耦入站事件的投递，出站统一走 Send 通道
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"soullink_server/internal/dto/request"
	"soullink_server/pkg/constants"
)

// upgrader 允许任何来源的连接，跨域校验交给外部网关
var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client 表示一条 (会话, 用户) 维度的 WebSocket 连接
type Client struct {
	Conn      *websocket.Conn
	SessionId string
	UserId    string
	Send      chan []byte // 出站缓冲通道，写协程消费

	mu     sync.Mutex
	closed bool
}

// NewClient 封装一条已升级的连接
func NewClient(conn *websocket.Conn, sessionId, userId string) *Client {
	return &Client{
		Conn:      conn,
		SessionId: sessionId,
		UserId:    userId,
		Send:      make(chan []byte, constants.CHANNEL_SIZE),
	}
}

// Upgrade 将 HTTP 请求升级为 WebSocket 连接
func Upgrade(c *gin.Context) (*websocket.Conn, error) {
	return upgrader.Upgrade(c.Writer, c.Request, nil)
}

// ReadPump 读协程：解析入站帧并补充身份信息后交给 publish 回调
// 连接断开或解析不到合法帧时退出，由调用方负责注销
func (c *Client) ReadPump(publish func(envelope []byte)) {
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		var frame request.ChatEventRequest
		if err := json.Unmarshal(raw, &frame); err != nil {
			zap.L().Warn("丢弃无法解析的入站帧",
				zap.String("session_id", c.SessionId),
				zap.String("user_id", c.UserId),
			)
			continue
		}
		envelope, err := json.Marshal(request.ChatEventEnvelope{
			SessionId: c.SessionId,
			UserId:    c.UserId,
			Type:      frame.Type,
			Content:   frame.Content,
			IsTyping:  frame.IsTyping,
		})
		if err != nil {
			zap.L().Error(err.Error())
			continue
		}
		publish(envelope)
	}
}

// WritePump 写协程：消费 Send 通道并写入连接
func (c *Client) WritePump() {
	for payload := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			zap.L().Error(err.Error())
			return
		}
	}
}

// Deliver 非阻塞投递一帧出站消息
// 连接已关闭或缓冲已满时返回 false，调用方据此注销该连接
func (c *Client) Deliver(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Close 关闭连接与出站通道，可重复调用
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.Send)
	c.mu.Unlock()

	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}
