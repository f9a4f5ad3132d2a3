// Factory functions for rxlite
// 工厂函数，提供符合Go习惯的API设计
package rxlite

import (
	"iter"
)

// ============================================================================
// 基础工厂函数
// ============================================================================

// Create 从发射函数创建Observable
//
// 每次订阅恰好调用一次emit。emit可以调用任意次OnNext，之后必须恰好调用一次
// OnCompleted或OnError。emit在终止信号之前panic会被转换为一次OnError。
func Create[T any](emit func(s Subscriber[T])) Observable[T] {
	return newObservable(nil, func(c *chain, down Subscriber[T]) {
		e := &emitter[T]{c: c, down: down}
		if err := SafeExecute(func() { emit(e) }); err != nil {
			e.fail(err)
		}
	})
}

// Just 按参数顺序发射给定的值，然后完成
func Just[T any](values ...T) Observable[T] {
	return From(values)
}

// From 按顺序发射切片中的每个元素，然后完成
func From[T any](values []T) Observable[T] {
	return Create(func(s Subscriber[T]) {
		for _, value := range values {
			if s.IsUnsubscribed() {
				return
			}
			s.OnNext(value)
		}
		s.OnCompleted()
	})
}

// FromSeq 从迭代器创建Observable，每次订阅重新迭代
func FromSeq[T any](seq iter.Seq[T]) Observable[T] {
	return Create(func(s Subscriber[T]) {
		for value := range seq {
			if s.IsUnsubscribed() {
				return
			}
			s.OnNext(value)
		}
		s.OnCompleted()
	})
}

// Empty 创建一个空的Observable，立即完成
func Empty[T any]() Observable[T] {
	return Create(func(s Subscriber[T]) {
		s.OnCompleted()
	})
}

// Error 创建一个立即发射错误的Observable
func Error[T any](err error) Observable[T] {
	return Create(func(s Subscriber[T]) {
		s.OnError(err)
	})
}

// Never 创建一个永不发射任何通知的Observable
func Never[T any]() Observable[T] {
	return Create(func(Subscriber[T]) {})
}
