// Package session 实现双人聊天会话的业务逻辑
// 会话的建立、消息追加（序号分配）、历史查询与已读标记都在这里
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"soullink_server/internal/dao/mysql"
	myredis "soullink_server/internal/dao/redis"
	"soullink_server/internal/dto/request"
	"soullink_server/internal/dto/respond"
	"soullink_server/internal/model"
	"soullink_server/pkg/constants"
	"soullink_server/pkg/errorx"
	"soullink_server/pkg/util/random"
	"soullink_server/pkg/util/snowflake"
)

// defaultMessagePageSize 消息列表默认分页大小，与缓存页对应
const defaultMessagePageSize = 50

// sessionService 会话业务逻辑实现
// 通过构造函数注入 Repository 和 Cache 依赖
type sessionService struct {
	repos *mysql.Repositories
	cache myredis.AsyncCacheService
}

// NewSessionService 构造函数，注入所有依赖
func NewSessionService(repos *mysql.Repositories, cacheService myredis.AsyncCacheService) *sessionService {
	return &sessionService{
		repos: repos,
		cache: cacheService,
	}
}

// OpenSession 打开会话：已存在则复用，不存在则创建
// 参与者对先归一化为 (较小, 较大)，保证同一对用户只有一个会话
// 并发创建时唯一索引会拦下后到的一方，重查一次即可收敛
func (s *sessionService) OpenSession(req request.OpenSessionRequest) (string, error) {
	if req.UserId == req.PeerId {
		return "", errorx.New(errorx.CodeInvalidParam, "不能与自己建立会话")
	}
	userOne, userTwo := model.NormalizePair(req.UserId, req.PeerId)

	existing, err := s.repos.Session.FindByPair(userOne, userTwo)
	if err == nil {
		return existing.Uuid, nil
	}
	if errorx.GetCode(err) != errorx.CodeNotFound {
		zap.L().Error("查询已有会话失败",
			zap.String("user_one", userOne),
			zap.String("user_two", userTwo),
			zap.Error(err),
		)
		return "", errorx.ErrServerBusy
	}

	newSession := &model.ChatSession{
		Uuid:      fmt.Sprintf("S%s", random.GetNowAndLenRandomString(11)),
		UserOneId: userOne,
		UserTwoId: userTwo,
		Status:    model.SessionStatusActive,
	}
	if err := s.repos.Session.CreateSession(newSession); err != nil {
		// 并发创建撞唯一索引，回查已有会话
		created, findErr := s.repos.Session.FindByPair(userOne, userTwo)
		if findErr == nil {
			return created.Uuid, nil
		}
		zap.L().Error("创建会话失败",
			zap.String("user_one", userOne),
			zap.String("user_two", userTwo),
			zap.Error(err),
		)
		return "", errorx.ErrServerBusy
	}

	zap.L().Info("会话已创建",
		zap.String("session_id", newSession.Uuid),
		zap.String("user_one", userOne),
		zap.String("user_two", userTwo),
	)
	return newSession.Uuid, nil
}

// GetSession 查询会话并校验 userId 是否为参与者
func (s *sessionService) GetSession(sessionId, userId string) (*model.ChatSession, error) {
	chatSession, err := s.repos.Session.FindByUuid(sessionId)
	if err != nil {
		if errorx.GetCode(err) == errorx.CodeNotFound {
			return nil, errorx.Newf(errorx.CodeNotFound, "会话 %s 不存在", sessionId)
		}
		return nil, errorx.ErrServerBusy
	}
	if !chatSession.HasParticipant(userId) {
		return nil, errorx.Newf(errorx.CodeNotParticipant, "用户 %s 不是会话 %s 的参与者", userId, sessionId)
	}
	return chatSession, nil
}

// AppendMessage 向会话追加一条消息
// 行为约束：
//   - 发送者必须是会话参与者，否则返回 CodeNotParticipant
//   - 去除首尾空白后为空的内容直接拒绝
//   - 序号分配与计数更新在同一事务内完成：锁会话行 -> 序号 = message_count+1 ->
//     插入消息 -> 累加计数并刷新 last_message_at，保证序号严格递增无空洞
func (s *sessionService) AppendMessage(sessionId, senderId, content, msgType string) (*respond.ChatMessageRespond, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
	}
	if msgType == "" {
		msgType = model.MessageTypeText
	}

	if _, err := s.GetSession(sessionId, senderId); err != nil {
		return nil, err
	}

	now := time.Now()
	message := &model.ChatMessage{
		Uuid:     snowflake.GenerateID(),
		SenderId: senderId,
		Content:  content,
		Type:     msgType,
	}

	err := s.repos.Transaction(func(tx *mysql.Repositories) error {
		locked, err := tx.Session.FindByUuidForUpdate(sessionId)
		if err != nil {
			return err
		}
		message.SessionId = locked.Uuid
		message.SequenceNumber = locked.MessageCount + 1
		if err := tx.Message.Create(message); err != nil {
			return err
		}
		return tx.Session.IncrementMessageStats(locked.Uuid, now)
	})
	if err != nil {
		zap.L().Error("追加消息失败",
			zap.String("session_id", sessionId),
			zap.String("sender_id", senderId),
			zap.Error(err),
		)
		return nil, errorx.Wrap(err, errorx.CodeDBError, "追加消息失败")
	}

	// 异步失效首页缓存
	if s.cache != nil {
		s.cache.SubmitTask(func() {
			_ = s.cache.Delete(context.Background(), messageListCacheKey(sessionId))
		})
	}

	return toMessageRespond(message, now), nil
}

// GetMessageList 查询会话消息，按序号升序返回，排除软删除
// 首页（offset=0 且 limit 不超过默认页）优先走 Redis 缓存
func (s *sessionService) GetMessageList(req request.GetMessageListRequest) ([]respond.ChatMessageRespond, error) {
	if _, err := s.GetSession(req.SessionId, req.UserId); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultMessagePageSize
	}
	cacheable := s.cache != nil && req.Offset == 0 && limit == defaultMessagePageSize

	if cacheable {
		cached, err := s.cache.GetOrError(context.Background(), messageListCacheKey(req.SessionId))
		if err == nil {
			var list []respond.ChatMessageRespond
			if jsonErr := json.Unmarshal([]byte(cached), &list); jsonErr == nil {
				return list, nil
			}
			zap.L().Error("消息列表缓存解析失败", zap.String("session_id", req.SessionId))
		}
	}

	// 仓储按序号倒序分页取 limit 条，这里反转为升序
	messages, err := s.repos.Message.FindBySessionDesc(req.SessionId, limit, req.Offset)
	if err != nil {
		zap.L().Error("查询消息列表失败", zap.String("session_id", req.SessionId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	list := make([]respond.ChatMessageRespond, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		list = append(list, *toMessageRespond(&messages[i], messages[i].CreatedAt))
	}

	if cacheable {
		listCopy := list
		s.cache.SubmitTask(func() {
			if raw, err := json.Marshal(listCopy); err == nil {
				_ = s.cache.Set(context.Background(), messageListCacheKey(req.SessionId),
					string(raw), time.Minute*constants.REDIS_TIMEOUT)
			}
		})
	}
	return list, nil
}

// MarkRead 将对方发来的未读消息标记为已读，返回本次新标记的条数
// 重复调用只会再次影响 0 行，是幂等操作
func (s *sessionService) MarkRead(req request.MarkReadRequest) (int64, error) {
	if _, err := s.GetSession(req.SessionId, req.UserId); err != nil {
		return 0, err
	}
	count, err := s.repos.Message.MarkRead(req.SessionId, req.UserId, req.UpToSequence, time.Now())
	if err != nil {
		zap.L().Error("标记已读失败",
			zap.String("session_id", req.SessionId),
			zap.String("user_id", req.UserId),
			zap.Error(err),
		)
		return 0, errorx.ErrServerBusy
	}
	if count > 0 && s.cache != nil {
		s.cache.SubmitTask(func() {
			_ = s.cache.Delete(context.Background(), messageListCacheKey(req.SessionId))
		})
	}
	return count, nil
}

// SetOnline 镜像参与者的在线状态到会话行，并同步 Redis 在线集合
// 由连接管理器在连接建立/断开时调用，出错只记日志不向上传播
func (s *sessionService) SetOnline(sessionId, userId string, online bool) {
	chatSession, err := s.repos.Session.FindByUuid(sessionId)
	if err != nil || !chatSession.HasParticipant(userId) {
		return
	}
	now := time.Now()
	slotOne := chatSession.UserOneId == userId
	if err := s.repos.Session.UpdateOnlineFlag(sessionId, slotOne, online, now); err != nil {
		zap.L().Error("更新在线状态失败",
			zap.String("session_id", sessionId),
			zap.String("user_id", userId),
			zap.Error(err),
		)
	}
	if s.cache != nil {
		s.cache.SubmitTask(func() {
			key := onlineSetCacheKey(sessionId)
			if online {
				_ = s.cache.AddToSet(context.Background(), key, userId)
			} else {
				_ = s.cache.RemoveFromSet(context.Background(), key, userId)
			}
		})
	}
}

// GetSessionList 查询用户参与的活跃会话列表
func (s *sessionService) GetSessionList(userId string) ([]respond.SessionListRespond, error) {
	sessions, err := s.repos.Session.FindByUser(userId)
	if err != nil {
		zap.L().Error("查询会话列表失败", zap.String("user_id", userId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	list := make([]respond.SessionListRespond, 0, len(sessions))
	for i := range sessions {
		cs := &sessions[i]
		peerOnline := cs.UserTwoOnline
		if cs.UserTwoId == userId {
			peerOnline = cs.UserOneOnline
		}
		item := respond.SessionListRespond{
			SessionId:    cs.Uuid,
			PeerId:       cs.PeerOf(userId),
			PeerOnline:   peerOnline,
			MessageCount: cs.MessageCount,
			Status:       cs.Status,
		}
		if cs.LastMessageAt.Valid {
			item.LastMessageAt = cs.LastMessageAt.Time.Format("2006-01-02 15:04:05")
		}
		list = append(list, item)
	}
	return list, nil
}

// toMessageRespond 将消息模型转为响应 DTO
func toMessageRespond(m *model.ChatMessage, createdAt time.Time) *respond.ChatMessageRespond {
	if m.CreatedAt != (time.Time{}) {
		createdAt = m.CreatedAt
	}
	return &respond.ChatMessageRespond{
		MessageId:      strconv.FormatInt(m.Uuid, 10),
		SessionId:      m.SessionId,
		SequenceNumber: m.SequenceNumber,
		SenderId:       m.SenderId,
		Content:        m.Content,
		Type:           m.Type,
		IsRead:         m.IsRead,
		CreatedAt:      createdAt.Format("2006-01-02 15:04:05"),
	}
}

func messageListCacheKey(sessionId string) string {
	return "message_list_" + sessionId
}

func onlineSetCacheKey(sessionId string) string {
	return "session_online_" + sessionId
}
