package respond

// TaskRespond 任务状态查询响应
// 使用位置:
//   - internal/handler/task_handler.go: GetTask
type TaskRespond struct {
	TaskId      string                 `json:"task_id"`
	Kind        string                 `json:"kind"`
	Status      string                 `json:"status"`
	Progress    int                    `json:"progress"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   string                 `json:"created_at"`
	StartedAt   string                 `json:"started_at,omitempty"`
	CompletedAt string                 `json:"completed_at,omitempty"`
}

// TriggerRoundRespond 手动触发回合响应
// 使用位置:
//   - internal/handler/match_handler.go: TriggerRound
type TriggerRoundRespond struct {
	TaskId string `json:"task_id"`
}

// SchedulerStatusRespond 调度器状态响应
// 使用位置:
//   - internal/handler/match_handler.go: SchedulerStatus
type SchedulerStatusRespond struct {
	Running      bool `json:"running"`
	PollInterval int  `json:"poll_interval_seconds"`
}
