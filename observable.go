// Observable implementation for rxlite
// 基于闭包链的冷Observable实现：每个操作符返回包装上游的新Observable
package rxlite

import (
	"slices"
	"sync"

	"github.com/ef-ds/deque"
	"go.uber.org/atomic"
)

// ============================================================================
// Observable 核心实现
// ============================================================================

// Observable 惰性的、推送式的值序列。不可变，可被多次订阅，每次订阅
// 都从头执行源逻辑。零值等价于 Empty。
type Observable[T any] struct {
	onSubscribe func(c *chain, s Subscriber[T])
	// lanes 链上引用的调度器，订阅时统一校验
	lanes []Scheduler
}

func newObservable[T any](lanes []Scheduler, onSubscribe func(c *chain, s Subscriber[T])) Observable[T] {
	return Observable[T]{onSubscribe: onSubscribe, lanes: lanes}
}

func appendLane(lanes []Scheduler, s Scheduler) []Scheduler {
	return append(slices.Clone(lanes), s)
}

// subscribeWith 在给定环境中订阅，零值Observable立即完成
func (o Observable[T]) subscribeWith(c *chain, s Subscriber[T]) {
	if o.onSubscribe == nil {
		s.OnCompleted()
		return
	}
	o.onSubscribe(c, s)
}

// Subscribe 订阅观察者
//
// 链上引用的调度器在这里同步校验，未注册或已关闭的lane以错误返回，
// 不会经由OnError分发。没有SubscribeOn时，源逻辑在调用者的goroutine中执行。
func (o Observable[T]) Subscribe(observer Observer[T], options ...Option) (Subscription, error) {
	c := newChain(newConfig(options))

	for _, lane := range o.lanes {
		if _, err := c.resolve(lane); err != nil {
			c.log.Debug().Err(err).Msg("subscribe rejected")
			return nil, err
		}
	}

	c.log.Debug().Int("lanes", len(o.lanes)).Msg("subscribe")
	o.subscribeWith(c, &observerSubscriber[T]{c: c, observer: observer})
	return c.sub, nil
}

// SubscribeNext 只处理值，终止信号忽略
func (o Observable[T]) SubscribeNext(onNext OnNext[T], options ...Option) (Subscription, error) {
	return o.Subscribe(Observer[T]{OnNext: onNext}, options...)
}

// SubscribeNextError 处理值和错误
func (o Observable[T]) SubscribeNextError(onNext OnNext[T], onError OnError, options ...Option) (Subscription, error) {
	return o.Subscribe(Observer[T]{OnNext: onNext, OnError: onError}, options...)
}

// SubscribeWithCallbacks 使用回调函数订阅，OnError与OnCompleted互斥
func (o Observable[T]) SubscribeWithCallbacks(onNext OnNext[T], onError OnError, onCompleted OnCompleted, options ...Option) (Subscription, error) {
	return o.Subscribe(Observer[T]{OnNext: onNext, OnError: onError, OnCompleted: onCompleted}, options...)
}

// ============================================================================
// 调度操作符
// ============================================================================

// SubscribeOn 指定订阅上游时使用的调度器
//
// 只影响源开始发射的位置，不影响下游操作符在哪里执行。
func (o Observable[T]) SubscribeOn(scheduler Scheduler) Observable[T] {
	return newObservable(appendLane(o.lanes, scheduler), func(c *chain, down Subscriber[T]) {
		// 任务开始后从订阅上取下取消句柄
		var (
			mu      sync.Mutex
			started bool
			handle  Disposable
		)
		d, err := c.schedule(scheduler, func() {
			mu.Lock()
			started = true
			h := handle
			mu.Unlock()
			if h != nil {
				c.sub.remove(h)
			}
			o.subscribeWith(c, down)
		})
		if err != nil {
			down.OnError(err)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if !started {
			handle = d
			c.sub.add(d)
		}
	})
}

// ObserveOn 指定此后所有下游通知在哪个调度器上分发
//
// 每个订阅维护一个FIFO队列，即使在并发的io-pool上也保持通知顺序。
func (o Observable[T]) ObserveOn(scheduler Scheduler) Observable[T] {
	return newObservable(appendLane(o.lanes, scheduler), func(c *chain, down Subscriber[T]) {
		o.subscribeWith(c, &observeOnSubscriber[T]{
			c:     c,
			lane:  scheduler,
			down:  down,
			queue: deque.New(),
		})
	})
}

type observeOnSubscriber[T any] struct {
	c    *chain
	lane Scheduler
	down Subscriber[T]
	done atomic.Bool

	mu       sync.Mutex
	queue    *deque.Deque
	draining bool
}

func (o *observeOnSubscriber[T]) OnNext(value T) {
	if o.done.Load() {
		return
	}
	o.enqueue(NextItem(value))
}

func (o *observeOnSubscriber[T]) OnError(err error) {
	if o.done.CompareAndSwap(false, true) {
		o.enqueue(ErrorItem[T](err))
	}
}

func (o *observeOnSubscriber[T]) OnCompleted() {
	if o.done.CompareAndSwap(false, true) {
		o.enqueue(CompletedItem[T]())
	}
}

func (o *observeOnSubscriber[T]) IsUnsubscribed() bool {
	return o.done.Load() || o.c.sub.IsUnsubscribed()
}

func (o *observeOnSubscriber[T]) enqueue(item Item[T]) {
	o.mu.Lock()
	o.queue.PushBack(item)
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	o.mu.Unlock()

	if _, err := o.c.schedule(o.lane, o.drain); err != nil {
		// lane在订阅校验之后被关闭，只能在当前goroutine上报错
		o.c.log.Error().Err(err).Str("lane", o.lane.Name()).Msg("observeOn lane unavailable")
		o.mu.Lock()
		o.queue = deque.New()
		o.mu.Unlock()
		o.done.Store(true)
		o.down.OnError(err)
	}
}

// drain 在目标lane上依次分发队列中的通知
func (o *observeOnSubscriber[T]) drain() {
	for {
		o.mu.Lock()
		v, ok := o.queue.PopFront()
		if !ok {
			o.draining = false
			o.mu.Unlock()
			return
		}
		o.mu.Unlock()

		if o.c.sub.IsUnsubscribed() {
			continue
		}
		v.(Item[T]).deliver(o.down)
	}
}
