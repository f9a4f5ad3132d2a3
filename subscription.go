package rxlite

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Subscription 订阅接口，管理订阅的生命周期
type Subscription interface {
	// Unsubscribe 取消订阅，幂等；之后不再分发新的通知
	Unsubscribe()
	// IsUnsubscribed 已取消或已收到终止信号
	IsUnsubscribed() bool
	// Done 取消或终止信号分发完成后关闭
	Done() <-chan struct{}
	// ID 订阅标识，用于日志
	ID() string
}

// subscription 一次Subscribe调用对应的订阅，整条链的所有阶段共享
type subscription struct {
	id         string
	cancelled  atomic.Bool
	terminated atomic.Bool
	resources  *CompositeDisposable
	done       chan struct{}
	closeOnce  sync.Once
	log        zerolog.Logger
}

func newSubscription(log zerolog.Logger) *subscription {
	id := uuid.NewString()
	return &subscription{
		id:        id,
		resources: NewCompositeDisposable(),
		done:      make(chan struct{}),
		log:       log.With().Str("subscription_id", id).Logger(),
	}
}

// Unsubscribe 取消订阅
func (s *subscription) Unsubscribe() {
	if s.terminated.Load() {
		return
	}
	if s.cancelled.CompareAndSwap(false, true) {
		s.log.Debug().Msg("subscription cancelled")
		s.release()
	}
}

// IsUnsubscribed 检查是否已取消订阅
func (s *subscription) IsUnsubscribed() bool {
	return s.cancelled.Load() || s.terminated.Load()
}

// Done 订阅结束的通知通道
func (s *subscription) Done() <-chan struct{} {
	return s.done
}

// ID 订阅标识
func (s *subscription) ID() string {
	return s.id
}

// terminate 抢占终止信号的分发权；已取消或已终止时返回false
func (s *subscription) terminate() bool {
	if s.cancelled.Load() {
		return false
	}
	return s.terminated.CompareAndSwap(false, true)
}

// add 将资源挂到订阅上，订阅结束时一并释放
func (s *subscription) add(d Disposable) {
	s.resources.Add(d)
}

// remove 取下不再需要随订阅释放的资源
func (s *subscription) remove(d Disposable) {
	s.resources.Remove(d)
}

// release 释放资源并关闭Done通道
func (s *subscription) release() {
	s.resources.Dispose()
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
