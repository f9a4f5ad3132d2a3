// Transform operators for rxlite
// 转换操作符：Map 与 FlatMap
package rxlite

import (
	"sync"

	"go.uber.org/atomic"
)

// ============================================================================
// Map
// ============================================================================

// Map 对每个上游值调用fn并按原顺序向下游发射结果
//
// fn返回错误或panic时发射一次OnError并停止该阶段。
func Map[T, R any](src Observable[T], fn func(value T) (R, error)) Observable[R] {
	return newObservable(src.lanes, func(c *chain, down Subscriber[R]) {
		r := &relay[T]{c: c, fail: down.OnError, complete: down.OnCompleted}
		r.next = func(value T) {
			var (
				result R
				err    error
			)
			if perr := SafeExecute(func() { result, err = fn(value) }); perr != nil {
				err = perr
			}
			if err != nil {
				r.OnError(err)
				return
			}
			down.OnNext(result)
		}
		src.subscribeWith(c, r)
	})
}

// ============================================================================
// FlatMap
// ============================================================================

// FlatMap 将每个上游值映射为内部Observable，并把所有内部Observable的
// 发射合并到下游
//
// 同一个内部Observable的值保持相对顺序。内部Observable运行在不同lane上
// 并发发射时，不同内部Observable之间没有顺序保证；下游的调用总是串行的。
// 上游与全部内部Observable都完成后才完成，任一错误立即终止。
func FlatMap[T, R any](src Observable[T], fn func(value T) Observable[R]) Observable[R] {
	return newObservable(src.lanes, func(c *chain, down Subscriber[R]) {
		m := &merger[R]{c: c, down: down}
		m.active.Store(1)
		src.subscribeWith(c, &flatMapOuter[T, R]{m: m, fn: fn})
	})
}

// merger 串行化多个内部Observable的发射
type merger[R any] struct {
	c      *chain
	down   Subscriber[R]
	mu     sync.Mutex
	active atomic.Int64
	done   atomic.Bool
}

func (m *merger[R]) emit(value R) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done.Load() || m.c.sub.IsUnsubscribed() {
		return
	}
	m.down.OnNext(value)
}

func (m *merger[R]) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done.CompareAndSwap(false, true) {
		m.down.OnError(err)
	}
}

// completeOne 上游或某个内部Observable完成
func (m *merger[R]) completeOne() {
	if m.active.Dec() > 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done.CompareAndSwap(false, true) {
		m.down.OnCompleted()
	}
}

func (m *merger[R]) stopped() bool {
	return m.done.Load() || m.c.sub.IsUnsubscribed()
}

// subscribeInner 订阅内部Observable；其lane此时才能解析，失败经由OnError报告
func (m *merger[R]) subscribeInner(inner Observable[R]) {
	for _, lane := range inner.lanes {
		if _, err := m.c.resolve(lane); err != nil {
			m.fail(err)
			return
		}
	}
	m.active.Inc()
	inner.subscribeWith(m.c, &flatMapInner[R]{m: m})
}

type flatMapOuter[T, R any] struct {
	m    *merger[R]
	fn   func(value T) Observable[R]
	done atomic.Bool
}

func (o *flatMapOuter[T, R]) OnNext(value T) {
	if o.IsUnsubscribed() {
		return
	}
	var inner Observable[R]
	if err := SafeExecute(func() { inner = o.fn(value) }); err != nil {
		o.OnError(err)
		return
	}
	o.m.subscribeInner(inner)
}

func (o *flatMapOuter[T, R]) OnError(err error) {
	if o.done.CompareAndSwap(false, true) {
		o.m.fail(err)
	}
}

func (o *flatMapOuter[T, R]) OnCompleted() {
	if o.done.CompareAndSwap(false, true) {
		o.m.completeOne()
	}
}

func (o *flatMapOuter[T, R]) IsUnsubscribed() bool {
	return o.done.Load() || o.m.stopped()
}

type flatMapInner[R any] struct {
	m    *merger[R]
	done atomic.Bool
}

func (i *flatMapInner[R]) OnNext(value R) {
	if i.done.Load() {
		return
	}
	i.m.emit(value)
}

func (i *flatMapInner[R]) OnError(err error) {
	if i.done.CompareAndSwap(false, true) {
		i.m.fail(err)
	}
}

func (i *flatMapInner[R]) OnCompleted() {
	if i.done.CompareAndSwap(false, true) {
		i.m.completeOne()
	}
}

func (i *flatMapInner[R]) IsUnsubscribed() bool {
	return i.done.Load() || i.m.stopped()
}
