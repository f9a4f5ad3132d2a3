package rxlite

import (
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// ============================================================================
// 观察者与订阅者
// ============================================================================

// Observer 观察者，三个处理函数均可为nil，nil视为空操作
type Observer[T any] struct {
	OnNext      OnNext[T]
	OnError     OnError
	OnCompleted OnCompleted
}

// Subscriber 推送端接口，Create的发射函数通过它发送通知
//
// 调用方须保证：OnNext可调用任意次，之后恰好调用一次OnError或OnCompleted，
// 且同一个Subscriber上的调用不并发。
type Subscriber[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
	// IsUnsubscribed 下游已不再接收，发射函数可以提前退出
	IsUnsubscribed() bool
}

// chain 一次订阅的运行环境
type chain struct {
	sub    *subscription
	config *Config
	log    zerolog.Logger
}

func newChain(config *Config) *chain {
	log := config.Logger.With().Str("component", "rxlite").Logger()
	sub := newSubscription(log)
	return &chain{
		sub:    sub,
		config: config,
		log:    sub.log,
	}
}

// resolve 将lane引用解析为可用的调度器
func (c *chain) resolve(s Scheduler) (Scheduler, error) {
	if s == nil {
		return nil, unknownScheduler("<nil>")
	}
	if ref, ok := s.(laneRef); ok {
		if c.config.Registry == nil {
			return nil, unknownScheduler(ref.name)
		}
		resolved, err := c.config.Registry.Lookup(ref.name)
		if err != nil {
			return nil, err
		}
		s = resolved
	}
	if isClosed(s) {
		return nil, schedulerClosed(s.Name())
	}
	return s, nil
}

// schedule 在lane上调度任务，任务运行前检查订阅是否仍然有效
func (c *chain) schedule(s Scheduler, task func()) (Disposable, error) {
	lane, err := c.resolve(s)
	if err != nil {
		return emptyDisposable, err
	}
	return lane.Schedule(func() {
		if c.sub.IsUnsubscribed() {
			c.log.Debug().Str("lane", lane.Name()).Msg("dropping task of inactive subscription")
			return
		}
		task()
	})
}

// violation 处理协议违规
func (c *chain) violation(err *ContractError) {
	if c.config.OnViolation != nil {
		c.config.OnViolation(err)
		return
	}
	c.log.Error().Err(err).Msg("observer contract violated")
	panic(err)
}

// ============================================================================
// 终端订阅者：把通知交给用户的Observer
// ============================================================================

type observerSubscriber[T any] struct {
	c        *chain
	observer Observer[T]
}

func (o *observerSubscriber[T]) OnNext(value T) {
	if o.c.sub.IsUnsubscribed() {
		return
	}
	if o.observer.OnNext == nil {
		return
	}
	if err := SafeExecute(func() { o.observer.OnNext(value) }); err != nil {
		o.c.log.Debug().Err(err).Msg("observer OnNext panicked")
		o.OnError(err)
	}
}

func (o *observerSubscriber[T]) OnError(err error) {
	if !o.c.sub.terminate() {
		o.c.log.Debug().Err(err).Msg("dropping error of inactive subscription")
		return
	}
	defer o.c.sub.release()
	if o.observer.OnError != nil {
		o.terminal(KindError, func() { o.observer.OnError(err) })
	}
}

func (o *observerSubscriber[T]) OnCompleted() {
	if !o.c.sub.terminate() {
		return
	}
	defer o.c.sub.release()
	if o.observer.OnCompleted != nil {
		o.terminal(KindCompleted, o.observer.OnCompleted)
	}
}

// terminal 执行终止回调。此时已没有可以报告错误的通道，
// 回调中的panic只记录日志，不论在哪个lane上都不会向外传播。
func (o *observerSubscriber[T]) terminal(signal Kind, handler func()) {
	if err := SafeExecute(handler); err != nil {
		o.c.log.Error().Err(err).Stringer("signal", signal).Msg("observer terminal handler panicked")
	}
}

func (o *observerSubscriber[T]) IsUnsubscribed() bool {
	return o.c.sub.IsUnsubscribed()
}

// ============================================================================
// 发射器：Create交给用户的Subscriber，负责协议检查
// ============================================================================

type emitter[T any] struct {
	c          *chain
	down       Subscriber[T]
	terminated atomic.Bool
}

func (e *emitter[T]) OnNext(value T) {
	if e.terminated.Load() {
		e.c.violation(&ContractError{Signal: KindNext, Reason: "OnNext called after OnError or OnCompleted"})
		return
	}
	if e.down.IsUnsubscribed() {
		return
	}
	e.down.OnNext(value)
}

func (e *emitter[T]) OnError(err error) {
	if !e.terminated.CompareAndSwap(false, true) {
		e.c.violation(&ContractError{Signal: KindError, Reason: "second terminal signal"})
		return
	}
	e.down.OnError(err)
}

func (e *emitter[T]) OnCompleted() {
	if !e.terminated.CompareAndSwap(false, true) {
		e.c.violation(&ContractError{Signal: KindCompleted, Reason: "second terminal signal"})
		return
	}
	e.down.OnCompleted()
}

func (e *emitter[T]) IsUnsubscribed() bool {
	return e.terminated.Load() || e.down.IsUnsubscribed()
}

// fail 发射函数panic时调用
func (e *emitter[T]) fail(err error) {
	if !e.terminated.CompareAndSwap(false, true) {
		e.c.log.Error().Err(err).Msg("emitter panicked after terminal signal")
		return
	}
	e.down.OnError(err)
}

// ============================================================================
// relay 通用的中间阶段
// ============================================================================

// relay 把上游通知转交给next/fail/complete，终止信号只转发一次
type relay[T any] struct {
	c        *chain
	done     atomic.Bool
	next     func(value T)
	fail     func(err error)
	complete func()
}

func (r *relay[T]) OnNext(value T) {
	if r.IsUnsubscribed() {
		return
	}
	r.next(value)
}

func (r *relay[T]) OnError(err error) {
	if r.done.CompareAndSwap(false, true) {
		r.fail(err)
	}
}

func (r *relay[T]) OnCompleted() {
	if r.done.CompareAndSwap(false, true) {
		r.complete()
	}
}

func (r *relay[T]) IsUnsubscribed() bool {
	return r.done.Load() || r.c.sub.IsUnsubscribed()
}
