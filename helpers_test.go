package rxlite

import (
	"sync"
	"testing"
	"time"
)

// recorder 记录一次订阅收到的全部通知
type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	errs      []error
	completed int
	done      chan struct{}
	once      sync.Once
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{done: make(chan struct{})}
}

func (r *recorder[T]) observer() Observer[T] {
	return Observer[T]{
		OnNext: func(value T) {
			r.mu.Lock()
			r.values = append(r.values, value)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.once.Do(func() { close(r.done) })
		},
		OnCompleted: func() {
			r.mu.Lock()
			r.completed++
			r.mu.Unlock()
			r.once.Do(func() { close(r.done) })
		},
	}
}

// wait 等待终止信号
func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("测试超时：没有收到终止信号")
	}
}

func (r *recorder[T]) snapshot() ([]T, []error, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := append([]T(nil), r.values...)
	errs := append([]error(nil), r.errs...)
	return values, errs, r.completed
}
