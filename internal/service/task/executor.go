package task

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"soullink_server/internal/config"
)

// Job 一次异步执行单元，执行结果写回注册表
type Job struct {
	TaskId string
	Run    func(ctx context.Context) (map[string]interface{}, error)
}

// Executor 有界工作池
// 执行失败只写回注册表，不向提交方抛出
type Executor struct {
	registry *Registry
	jobs     chan Job
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewExecutor 按配置启动工作池
func NewExecutor(registry *Registry) *Executor {
	executorConfig := config.GetConfig().ExecutorConfig
	return NewExecutorWithSize(registry, executorConfig.WorkerNum, executorConfig.QueueSize)
}

func NewExecutorWithSize(registry *Registry, workerNum, queueSize int) *Executor {
	if workerNum <= 0 {
		workerNum = 3
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	e := &Executor{
		registry: registry,
		jobs:     make(chan Job, queueSize),
	}
	for i := 0; i < workerNum; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Submit 提交任务，队列满时阻塞，工作池已关闭时标记任务失败
// 发送期间持有读锁，Close 必须等所有在途的 Submit 退出后才能关闭通道
func (e *Executor) Submit(job Job) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		e.registry.Update(job.TaskId, StatusFailed, 0, nil, "执行器已关闭")
		return
	}
	e.jobs <- job
	e.mu.RUnlock()
}

// Close 停止接收新任务并等待在途任务执行完
// 写锁会等待阻塞在通道发送上的 Submit，工作协程仍在消费，不会死锁
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.jobs)
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for job := range e.jobs {
		e.execute(job)
	}
}

// execute 执行一个任务并写回状态，panic 收敛为失败
func (e *Executor) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(fmt.Sprintf("任务执行 panic: %v", r))
			e.registry.Update(job.TaskId, StatusFailed, 0, nil, fmt.Sprintf("panic: %v", r))
		}
	}()

	e.registry.Update(job.TaskId, StatusRunning, 20, nil, "")
	result, err := job.Run(context.Background())
	if err != nil {
		zap.L().Error("任务执行失败",
			zap.String("task_id", job.TaskId),
			zap.Error(err),
		)
		e.registry.Update(job.TaskId, StatusFailed, 0, nil, err.Error())
		return
	}
	e.registry.Update(job.TaskId, StatusCompleted, 100, result, "")
}
