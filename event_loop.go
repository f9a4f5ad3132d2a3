package rxlite

import (
	"context"
	"sync"

	"github.com/ef-ds/deque"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ============================================================================
// 串行调度器 - Event Loop
// ============================================================================

// EventLoop 串行lane，任务严格按提交顺序在驱动它的goroutine上执行。
//
// 嵌入方用Run阻塞地驱动它（相当于应用的主线程），或者在自己的事件循环中
// 周期性调用RunPending。没有主循环的程序可以用Start在后台goroutine上运行。
type EventLoop struct {
	name string

	mu       sync.Mutex
	queue    *deque.Deque
	closed   bool
	closedCh chan struct{}
	wake     chan struct{}

	// runMu 保证同一时刻只有一个goroutine在执行队列
	runMu     sync.Mutex
	running   atomic.Bool
	executing atomic.Bool
}

// NewEventLoop 创建串行lane
func NewEventLoop(name string) *EventLoop {
	if name == "" {
		name = LaneMain
	}
	return &EventLoop{
		name:     name,
		queue:    deque.New(),
		closedCh: make(chan struct{}),
		wake:     make(chan struct{}, 1),
	}
}

// Name lane名称
func (l *EventLoop) Name() string {
	return l.name
}

// Schedule 将任务追加到队尾
func (l *EventLoop) Schedule(task func()) (Disposable, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return emptyDisposable, schedulerClosed(l.name)
	}
	run, handle := newTask(task)
	l.queue.PushBack(run)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return handle, nil
}

// Len 队列中等待的任务数
func (l *EventLoop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Len()
}

// RunPending 在调用者goroutine上执行队列中的任务，直到队列为空，返回执行的任务数
func (l *EventLoop) RunPending() int {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	n := 0
	for {
		l.mu.Lock()
		v, ok := l.queue.PopFront()
		l.mu.Unlock()
		if !ok {
			return n
		}

		l.execute(v.(func()))
		n++
	}
}

func (l *EventLoop) execute(task func()) {
	l.executing.Store(true)
	defer l.executing.Store(false)
	task()
}

// Run 在调用者goroutine上驱动循环，直到ctx取消或Close
func (l *EventLoop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.Errorf("rxlite: event loop %q is already running", l.name)
	}
	defer l.running.Store(false)

	for {
		l.RunPending()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.closedCh:
			l.RunPending()
			return nil
		case <-l.wake:
		}
	}
}

// Start 在后台goroutine上运行循环，直到Close
func (l *EventLoop) Start() {
	go func() {
		_ = l.Run(context.Background())
	}()
}

// Executing 当前是否有循环任务正在执行
func (l *EventLoop) Executing() bool {
	return l.executing.Load()
}

// Close 停止接收新任务；Run会执行完已排队的任务后返回
func (l *EventLoop) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.closedCh)
	return nil
}

// IsClosed 检查是否已关闭
func (l *EventLoop) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
