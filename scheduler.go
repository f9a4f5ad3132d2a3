// Scheduler implementations for rxlite
// 实现调度器系统，支持不同的执行上下文（lane）
package rxlite

// ============================================================================
// 调度器接口
// ============================================================================

// Scheduler 调度器接口，决定任务在哪个执行上下文中运行
type Scheduler interface {
	// Name lane名称
	Name() string
	// Schedule 提交任务并立即返回（内联调度器除外）。
	// 返回的Disposable可在任务开始前取消它。
	Schedule(task func()) (Disposable, error)
}

// 内置lane名称
const (
	LaneImmediate = "immediate"
	LaneNewThread = "new-thread"
	LaneIO        = "io-pool"
	LaneMain      = "main"
)

// closable 可关闭的调度器
type closable interface {
	Close() error
	IsClosed() bool
}

func isClosed(s Scheduler) bool {
	if c, ok := s.(closable); ok {
		return c.IsClosed()
	}
	return false
}

func closeScheduler(s Scheduler) error {
	if c, ok := s.(closable); ok {
		return c.Close()
	}
	return nil
}

// newTask 包装任务，使其在开始前可被取消
func newTask(task func()) (func(), Disposable) {
	handle := NewBaseDisposable(nil)
	return func() {
		if handle.IsDisposed() {
			return
		}
		task()
	}, handle
}

// ============================================================================
// lane引用
// ============================================================================

// laneRef 按名称引用的lane，订阅时通过Registry解析
type laneRef struct {
	name string
}

// Lane 按名称引用一个lane。引用在订阅时通过 WithRegistry 提供的注册表解析，
// 名称未注册时Subscribe同步返回ErrUnknownScheduler。
func Lane(name string) Scheduler {
	return laneRef{name: name}
}

func (l laneRef) Name() string {
	return l.name
}

// Schedule 未解析的引用不能直接调度
func (l laneRef) Schedule(func()) (Disposable, error) {
	return emptyDisposable, unknownScheduler(l.name)
}

// ============================================================================
// 立即调度器 - Immediate Scheduler
// ============================================================================

// immediateScheduler 立即在当前goroutine中执行任务
type immediateScheduler struct{}

// NewImmediateScheduler 创建立即调度器，用于确定性测试
func NewImmediateScheduler() Scheduler {
	return immediateScheduler{}
}

func (immediateScheduler) Name() string {
	return LaneImmediate
}

// Schedule 立即执行任务
func (immediateScheduler) Schedule(task func()) (Disposable, error) {
	task()
	return emptyDisposable, nil
}

// ============================================================================
// 新线程调度器 - New Thread Scheduler
// ============================================================================

// newThreadScheduler 为每个任务创建新的goroutine
type newThreadScheduler struct{}

// NewNewThreadScheduler 创建新线程调度器
func NewNewThreadScheduler() Scheduler {
	return newThreadScheduler{}
}

func (newThreadScheduler) Name() string {
	return LaneNewThread
}

// Schedule 在新goroutine中执行任务
func (newThreadScheduler) Schedule(task func()) (Disposable, error) {
	run, handle := newTask(task)
	go run()
	return handle, nil
}

// ============================================================================
// 重命名包装
// ============================================================================

// renamedScheduler 以别名注册的lane
type renamedScheduler struct {
	Scheduler
	name string
}

func (r renamedScheduler) Name() string {
	return r.name
}

func (r renamedScheduler) Close() error {
	return closeScheduler(r.Scheduler)
}

func (r renamedScheduler) IsClosed() bool {
	return isClosed(r.Scheduler)
}
