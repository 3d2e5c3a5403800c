package constants

import "time"

const (
	CHANNEL_SIZE  = 100 // 通道大小
	REDIS_TIMEOUT = 1   // redis timeout (分钟)

	// TYPING_EXPIRE 输入状态过期阈值，超时后广播"停止输入"
	TYPING_EXPIRE = 30 * time.Second
	// TYPING_SWEEP_INTERVAL 输入状态后台清理周期
	TYPING_SWEEP_INTERVAL = 30 * time.Second

	// TASK_RETENTION 任务记录保留时长，超过后在创建新任务时被回收
	TASK_RETENTION = time.Hour

	// ROUND_CONTEXT_TURNS 生成对话时携带的最近轮次数
	ROUND_CONTEXT_TURNS = 6
	// ROUND_MIN_TURNS_BEFORE_END 自然结束判定前至少需要的消息数
	ROUND_MIN_TURNS_BEFORE_END = 4
	// SCORE_DELTA_LIMIT 单条评估分数增量的绝对值上限
	SCORE_DELTA_LIMIT = 10.0

	// RESCHEDULE_MIN / RESCHEDULE_MAX 回合完成后下次调度的随机区间
	RESCHEDULE_MIN = 24 * time.Hour
	RESCHEDULE_MAX = 72 * time.Hour
)
