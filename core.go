// Package rxlite provides a minimal reactive observable pipeline for Go
// 冷Observable、操作符阶段与可调度执行上下文（lane）构成的最小响应式核心
package rxlite

import (
	"sync"

	"go.uber.org/atomic"
)

// ============================================================================
// 核心类型定义
// ============================================================================

// Kind 通知类型
type Kind int

const (
	// KindNext 普通值
	KindNext Kind = iota
	// KindError 错误终止信号
	KindError
	// KindCompleted 完成终止信号
	KindCompleted
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Item 表示流中的一个通知：值、错误或完成
type Item[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// IsTerminal 检查是否为终止信号
func (item Item[T]) IsTerminal() bool {
	return item.Kind != KindNext
}

// NextItem 创建值通知
func NextItem[T any](value T) Item[T] {
	return Item[T]{Kind: KindNext, Value: value}
}

// ErrorItem 创建错误通知
func ErrorItem[T any](err error) Item[T] {
	return Item[T]{Kind: KindError, Err: err}
}

// CompletedItem 创建完成通知
func CompletedItem[T any]() Item[T] {
	return Item[T]{Kind: KindCompleted}
}

// deliver 将通知分发给订阅者
func (item Item[T]) deliver(s Subscriber[T]) {
	switch item.Kind {
	case KindNext:
		s.OnNext(item.Value)
	case KindError:
		s.OnError(item.Err)
	case KindCompleted:
		s.OnCompleted()
	}
}

// ============================================================================
// 函数类型定义
// ============================================================================

// OnNext 处理下一个值的函数
type OnNext[T any] func(value T)

// OnError 处理错误的函数
type OnError func(err error)

// OnCompleted 处理完成的函数
type OnCompleted func()

// ============================================================================
// 生命周期管理
// ============================================================================

// Disposable 可释放资源的接口
type Disposable interface {
	// Dispose 释放资源
	Dispose()
	// IsDisposed 检查是否已释放
	IsDisposed() bool
}

// baseDisposable 基础可释放资源实现
type baseDisposable struct {
	disposed atomic.Bool
	action   func()
}

// NewBaseDisposable 创建基础可释放资源，action 最多执行一次
func NewBaseDisposable(action func()) Disposable {
	return &baseDisposable{action: action}
}

// Dispose 释放资源
func (d *baseDisposable) Dispose() {
	if d.disposed.CompareAndSwap(false, true) {
		if d.action != nil {
			d.action()
		}
	}
}

// IsDisposed 检查是否已释放
func (d *baseDisposable) IsDisposed() bool {
	return d.disposed.Load()
}

// CompositeDisposable 组合式资源管理器
type CompositeDisposable struct {
	mu        sync.Mutex
	disposed  bool
	resources []Disposable
}

// NewCompositeDisposable 创建组合式资源管理器
func NewCompositeDisposable() *CompositeDisposable {
	return &CompositeDisposable{}
}

// Add 添加可释放资源；已释放时立即释放新资源
func (cd *CompositeDisposable) Add(disposable Disposable) {
	if disposable == nil {
		return
	}

	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		disposable.Dispose()
		return
	}
	cd.resources = append(cd.resources, disposable)
	cd.mu.Unlock()
}

// Remove 移除资源但不释放它，资源不存在时返回false
func (cd *CompositeDisposable) Remove(disposable Disposable) bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	for i, d := range cd.resources {
		if d == disposable {
			cd.resources = append(cd.resources[:i], cd.resources[i+1:]...)
			return true
		}
	}
	return false
}

// Len 当前持有的资源数量
func (cd *CompositeDisposable) Len() int {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return len(cd.resources)
}

// Dispose 释放所有资源
func (cd *CompositeDisposable) Dispose() {
	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		return
	}
	cd.disposed = true
	resources := cd.resources
	cd.resources = nil
	cd.mu.Unlock()

	// 在锁外释放，资源的释放动作可能回调到 Add
	for _, resource := range resources {
		resource.Dispose()
	}
}

// IsDisposed 检查是否已释放
func (cd *CompositeDisposable) IsDisposed() bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.disposed
}

// emptyDisposable 已释放的空资源
var emptyDisposable = func() Disposable {
	d := NewBaseDisposable(nil)
	d.Dispose()
	return d
}()

// ============================================================================
// 工具函数
// ============================================================================

// SafeExecute 安全执行函数，捕获panic并转换为错误
func SafeExecute(action func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if isContractPanic(r) {
				panic(r)
			}
			err = newPanicError(r)
		}
	}()

	action()
	return nil
}
