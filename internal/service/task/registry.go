// Package task 提供异步任务的登记与执行
package task

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"soullink_server/pkg/constants"
)

// 任务状态
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record 任务登记信息，进程内存活，不落库
// StartedAt/CompletedAt 为零值表示任务尚未进入对应阶段
type Record struct {
	TaskId      string                 `json:"task_id"`
	Type        string                 `json:"type"`
	Status      string                 `json:"status"`
	Progress    int                    `json:"progress"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   time.Time              `json:"started_at,omitempty"`
	CompletedAt time.Time              `json:"completed_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Registry 进程内任务注册表
// 每次登记新任务时顺带清理超过保留期的终态任务
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Record

	retention time.Duration
	now       func() time.Time // 测试注入
}

func NewRegistry() *Registry {
	return &Registry{
		tasks:     make(map[string]*Record),
		retention: constants.TASK_RETENTION,
		now:       time.Now,
	}
}

// Create 登记一个新任务，返回任务 ID
// metadata 记录任务的业务参数（如关系、场景），随任务快照一起对外返回
func (r *Registry) Create(taskType string, metadata map[string]interface{}) string {
	taskId := uuid.NewString()
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictExpired(now)
	r.tasks[taskId] = &Record{
		TaskId:    taskId,
		Type:      taskType,
		Status:    StatusPending,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return taskId
}

// Update 更新任务状态，未知任务 ID 时静默返回
func (r *Registry) Update(taskId, status string, progress int, result map[string]interface{}, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.tasks[taskId]
	if !ok {
		return
	}
	now := r.now()
	record.Status = status
	record.Progress = progress
	if result != nil {
		record.Result = result
	}
	record.Error = errMsg
	record.UpdatedAt = now

	// 进入运行和终态时分别打点，重复更新不覆盖首次开始时间
	switch status {
	case StatusRunning:
		if record.StartedAt.IsZero() {
			record.StartedAt = now
		}
	case StatusCompleted, StatusFailed:
		record.CompletedAt = now
	}
}

// Get 返回任务的快照副本，未找到时返回 false
func (r *Registry) Get(taskId string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.tasks[taskId]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// evictExpired 清理超过保留期的任务，调用方需持有锁
func (r *Registry) evictExpired(now time.Time) {
	for taskId, record := range r.tasks {
		if now.Sub(record.CreatedAt) > r.retention {
			delete(r.tasks, taskId)
		}
	}
}
