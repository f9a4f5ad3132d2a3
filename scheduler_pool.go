package rxlite

import (
	"runtime"
	"sync"

	"github.com/gammazero/workerpool"
)

// ============================================================================
// 线程池调度器 - IO Scheduler
// ============================================================================

// PoolScheduler 使用固定上限的goroutine池执行任务，任务之间可能并发且无序
type PoolScheduler struct {
	name    string
	workers int
	pool    *workerpool.WorkerPool

	mu     sync.RWMutex
	closed bool
}

// NewIOScheduler 创建io-pool调度器，workers<=0时使用CPU数量
func NewIOScheduler(workers int) *PoolScheduler {
	return NewPoolScheduler(LaneIO, workers)
}

// NewPoolScheduler 创建指定名称的线程池调度器
func NewPoolScheduler(name string, workers int) *PoolScheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &PoolScheduler{
		name:    name,
		workers: workers,
		pool:    workerpool.New(workers),
	}
}

// Name lane名称
func (s *PoolScheduler) Name() string {
	return s.name
}

// Workers 池的并发上限
func (s *PoolScheduler) Workers() int {
	return s.workers
}

// Schedule 提交任务到线程池，不阻塞
func (s *PoolScheduler) Schedule(task func()) (Disposable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return emptyDisposable, schedulerClosed(s.name)
	}

	run, handle := newTask(task)
	s.pool.Submit(run)
	return handle, nil
}

// Waiting 排队等待worker的任务数
func (s *PoolScheduler) Waiting() int {
	return s.pool.WaitingQueueSize()
}

// Close 停止接收新任务并等待已提交的任务执行完毕。
// 不能在池内的任务中调用。
func (s *PoolScheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.pool.StopWait()
	return nil
}

// IsClosed 检查是否已关闭
func (s *PoolScheduler) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
