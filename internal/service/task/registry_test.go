package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()

	taskId := registry.Create("auto_conversation", nil)
	record, ok := registry.Get(taskId)
	if !ok {
		t.Fatal("新任务应可查询")
	}
	if record.Status != StatusPending || record.Progress != 0 {
		t.Fatalf("新任务应为 pending, got %+v", record)
	}

	registry.Update(taskId, StatusRunning, 20, nil, "")
	registry.Update(taskId, StatusCompleted, 100, map[string]interface{}{"turns": 6}, "")

	record, _ = registry.Get(taskId)
	if record.Status != StatusCompleted || record.Progress != 100 {
		t.Fatalf("任务应为 completed, got %+v", record)
	}
	if record.Result["turns"] != 6 {
		t.Fatalf("执行结果未写回, got %+v", record.Result)
	}
}

func TestRegistryUnknownTaskUpdateIsNoop(t *testing.T) {
	registry := NewRegistry()
	registry.Update("不存在的任务", StatusFailed, 0, nil, "boom")
	if _, ok := registry.Get("不存在的任务"); ok {
		t.Fatal("未知任务更新不应创建任务")
	}
}

func TestRegistryGetReturnsSnapshot(t *testing.T) {
	registry := NewRegistry()
	taskId := registry.Create("auto_conversation", nil)

	record, _ := registry.Get(taskId)
	record.Status = StatusFailed

	fresh, _ := registry.Get(taskId)
	if fresh.Status != StatusPending {
		t.Fatal("Get 返回的副本不应影响注册表")
	}
}

func TestRegistryEvictsExpiredOnCreate(t *testing.T) {
	registry := NewRegistry()
	current := time.Now()
	registry.now = func() time.Time { return current }

	oldId := registry.Create("auto_conversation", nil)

	current = current.Add(61 * time.Minute)
	newId := registry.Create("auto_conversation", nil)

	if _, ok := registry.Get(oldId); ok {
		t.Fatal("超过保留期的任务应在登记新任务时被清理")
	}
	if _, ok := registry.Get(newId); !ok {
		t.Fatal("新任务不应被清理")
	}
}

func TestRegistryRecordsMetadataAndPhaseTimes(t *testing.T) {
	registry := NewRegistry()
	current := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return current }

	taskId := registry.Create("auto_conversation", map[string]interface{}{
		"relation_uuid": "R1",
		"max_turns":     8,
	})

	record, _ := registry.Get(taskId)
	if record.Metadata["relation_uuid"] != "R1" || record.Metadata["max_turns"] != 8 {
		t.Fatalf("业务参数未登记, got %+v", record.Metadata)
	}
	if !record.StartedAt.IsZero() || !record.CompletedAt.IsZero() {
		t.Fatalf("未开始的任务不应有阶段时间, got %+v", record)
	}

	startAt := current.Add(time.Minute)
	current = startAt
	registry.Update(taskId, StatusRunning, 20, nil, "")

	// 运行期间的进度更新不覆盖首次开始时间
	current = current.Add(time.Minute)
	registry.Update(taskId, StatusRunning, 60, nil, "")

	endAt := current.Add(time.Minute)
	current = endAt
	registry.Update(taskId, StatusCompleted, 100, nil, "")

	record, _ = registry.Get(taskId)
	if !record.StartedAt.Equal(startAt) {
		t.Fatalf("开始时间应为首次进入运行的时刻, got %v want %v", record.StartedAt, startAt)
	}
	if !record.CompletedAt.Equal(endAt) {
		t.Fatalf("结束时间应为进入终态的时刻, got %v want %v", record.CompletedAt, endAt)
	}
}

func TestExecutorRunsJobs(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutorWithSize(registry, 3, 8)

	taskId := registry.Create("auto_conversation", nil)
	done := make(chan struct{})
	executor.Submit(Job{
		TaskId: taskId,
		Run: func(ctx context.Context) (map[string]interface{}, error) {
			defer close(done)
			return map[string]interface{}{"conversation_id": "C123"}, nil
		},
	})

	<-done
	executor.Close()

	record, _ := registry.Get(taskId)
	if record.Status != StatusCompleted {
		t.Fatalf("任务应执行成功, got %+v", record)
	}
	if record.Result["conversation_id"] != "C123" {
		t.Fatalf("结果未写回, got %+v", record.Result)
	}
}

func TestExecutorMarksFailureWithoutThrowing(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutorWithSize(registry, 1, 4)

	failedId := registry.Create("auto_conversation", nil)
	executor.Submit(Job{
		TaskId: failedId,
		Run: func(ctx context.Context) (map[string]interface{}, error) {
			return nil, errors.New("生成服务不可用")
		},
	})

	panickedId := registry.Create("auto_conversation", nil)
	executor.Submit(Job{
		TaskId: panickedId,
		Run: func(ctx context.Context) (map[string]interface{}, error) {
			panic("意外崩溃")
		},
	})

	executor.Close()

	record, _ := registry.Get(failedId)
	if record.Status != StatusFailed || record.Error != "生成服务不可用" {
		t.Fatalf("失败任务应带错误信息, got %+v", record)
	}
	record, _ = registry.Get(panickedId)
	if record.Status != StatusFailed {
		t.Fatalf("panic 应收敛为失败状态, got %+v", record)
	}
}

func TestExecutorConcurrentSubmit(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutorWithSize(registry, 3, 8)

	const jobCount = 20
	var wg sync.WaitGroup
	ids := make([]string, jobCount)
	for i := 0; i < jobCount; i++ {
		ids[i] = registry.Create("auto_conversation", nil)
	}
	for i := 0; i < jobCount; i++ {
		wg.Add(1)
		taskId := ids[i]
		go func() {
			defer wg.Done()
			executor.Submit(Job{
				TaskId: taskId,
				Run: func(ctx context.Context) (map[string]interface{}, error) {
					return nil, nil
				},
			})
		}()
	}
	wg.Wait()
	executor.Close()

	for _, taskId := range ids {
		record, _ := registry.Get(taskId)
		if record.Status != StatusCompleted {
			t.Fatalf("任务 %s 应执行完成, got %+v", taskId, record)
		}
	}
}

func TestExecutorCloseAwaitsBlockedSubmit(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutorWithSize(registry, 1, 1)

	trivial := func(ctx context.Context) (map[string]interface{}, error) {
		return nil, nil
	}

	// 慢任务占住唯一的工作协程
	release := make(chan struct{})
	blockerId := registry.Create("auto_conversation", nil)
	executor.Submit(Job{
		TaskId: blockerId,
		Run: func(ctx context.Context) (map[string]interface{}, error) {
			<-release
			return nil, nil
		},
	})

	// 第二个任务填满队列缓冲
	queuedId := registry.Create("auto_conversation", nil)
	executor.Submit(Job{TaskId: queuedId, Run: trivial})

	// 第三个 Submit 阻塞在通道发送上
	blockedId := registry.Create("auto_conversation", nil)
	submitted := make(chan struct{})
	go func() {
		executor.Submit(Job{TaskId: blockedId, Run: trivial})
		close(submitted)
	}()
	time.Sleep(50 * time.Millisecond)

	// 此时关闭执行器，阻塞中的 Submit 不能触发向已关闭通道的发送
	closed := make(chan struct{})
	go func() {
		executor.Close()
		close(closed)
	}()
	time.Sleep(50 * time.Millisecond)

	close(release)
	<-submitted
	<-closed

	for _, taskId := range []string{blockerId, queuedId, blockedId} {
		record, _ := registry.Get(taskId)
		if record.Status != StatusCompleted {
			t.Fatalf("任务 %s 应执行完成, got %+v", taskId, record)
		}
	}
}

func TestExecutorSubmitAfterClose(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutorWithSize(registry, 1, 4)
	executor.Close()

	taskId := registry.Create("auto_conversation", nil)
	executor.Submit(Job{
		TaskId: taskId,
		Run: func(ctx context.Context) (map[string]interface{}, error) {
			return nil, nil
		},
	})

	record, _ := registry.Get(taskId)
	if record.Status != StatusFailed {
		t.Fatalf("关闭后提交应标记失败, got %+v", record)
	}
}
