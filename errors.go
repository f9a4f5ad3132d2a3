package rxlite

import (
	"fmt"

	"github.com/pkg/errors"
)

// ============================================================================
// 错误类型定义
// ============================================================================

var (
	// ErrUnknownScheduler 引用了未注册的lane
	ErrUnknownScheduler = errors.New("rxlite: unknown scheduler")
	// ErrSchedulerClosed 调度器已关闭，不再接受任务
	ErrSchedulerClosed = errors.New("rxlite: scheduler closed")
	// ErrDuplicateScheduler 重复注册同名lane
	ErrDuplicateScheduler = errors.New("rxlite: duplicate scheduler")
	// ErrContractViolation 生产者违反了Observer协议
	ErrContractViolation = errors.New("rxlite: observer contract violation")
)

// PanicError 用户函数中恢复的panic
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("rxlite: recovered panic: %v", e.Value)
}

// Unwrap 当panic值本身是error时返回它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(r interface{}) error {
	return errors.WithStack(&PanicError{Value: r})
}

// ContractError 描述一次协议违规，例如终止信号之后再调用OnNext
type ContractError struct {
	Signal Kind
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s after terminal signal: %s", ErrContractViolation, e.Signal, e.Reason)
}

func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}

func isContractPanic(r interface{}) bool {
	_, ok := r.(*ContractError)
	return ok
}

// unknownScheduler 包装ErrUnknownScheduler并带上lane名称
func unknownScheduler(name string) error {
	return errors.Wrapf(ErrUnknownScheduler, "lane %q", name)
}

// schedulerClosed 包装ErrSchedulerClosed并带上lane名称
func schedulerClosed(name string) error {
	return errors.Wrapf(ErrSchedulerClosed, "lane %q", name)
}
