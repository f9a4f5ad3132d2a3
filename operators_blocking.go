// Blocking operators for rxlite
// 阻塞操作符实现，包含BlockingSubscribe与ToSlice
package rxlite

import (
	"context"
	"sync"
)

// BlockingSubscribe 阻塞订阅，等待Observable终止或ctx取消
//
// 正常完成返回nil，OnError时返回该错误，ctx取消时取消订阅并返回ctx.Err()。
// 链上若有ObserveOn到某个EventLoop，调用者不能是驱动该EventLoop的goroutine。
func (o Observable[T]) BlockingSubscribe(ctx context.Context, observer Observer[T], options ...Option) error {
	var (
		mu      sync.Mutex
		termErr error
	)

	wrapped := Observer[T]{
		OnNext: observer.OnNext,
		OnError: func(err error) {
			mu.Lock()
			termErr = err
			mu.Unlock()
			if observer.OnError != nil {
				observer.OnError(err)
			}
		},
		OnCompleted: observer.OnCompleted,
	}

	subscription, err := o.Subscribe(wrapped, options...)
	if err != nil {
		return err
	}

	select {
	case <-subscription.Done():
	case <-ctx.Done():
		subscription.Unsubscribe()
		return ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return termErr
}

// ToSlice 阻塞收集所有值
func (o Observable[T]) ToSlice(ctx context.Context, options ...Option) ([]T, error) {
	var (
		mu     sync.Mutex
		values []T
	)

	err := o.BlockingSubscribe(ctx, Observer[T]{
		OnNext: func(value T) {
			mu.Lock()
			values = append(values, value)
			mu.Unlock()
		},
	}, options...)

	mu.Lock()
	defer mu.Unlock()
	return values, err
}
