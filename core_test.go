package rxlite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeDisposable(t *testing.T) {
	t.Run("释放所有资源且只释放一次", func(t *testing.T) {
		calls := 0
		cd := NewCompositeDisposable()
		cd.Add(NewBaseDisposable(func() { calls++ }))
		cd.Add(NewBaseDisposable(func() { calls++ }))
		assert.Equal(t, 2, cd.Len())

		cd.Dispose()
		cd.Dispose()

		assert.Equal(t, 2, calls)
		assert.True(t, cd.IsDisposed())
		assert.Equal(t, 0, cd.Len())
	})

	t.Run("移除的资源不被释放", func(t *testing.T) {
		cd := NewCompositeDisposable()
		kept, removed := NewBaseDisposable(nil), NewBaseDisposable(nil)
		cd.Add(kept)
		cd.Add(removed)

		assert.True(t, cd.Remove(removed))
		assert.False(t, cd.Remove(removed))
		assert.Equal(t, 1, cd.Len())

		cd.Dispose()
		assert.True(t, kept.IsDisposed())
		assert.False(t, removed.IsDisposed())
	})

	t.Run("已释放后添加的资源立即释放", func(t *testing.T) {
		cd := NewCompositeDisposable()
		cd.Dispose()

		d := NewBaseDisposable(nil)
		cd.Add(d)
		assert.True(t, d.IsDisposed())
		assert.Equal(t, 0, cd.Len())
	})
}

func TestSafeExecute(t *testing.T) {
	require.NoError(t, SafeExecute(func() {}))

	err := SafeExecute(func() { panic("boom") })
	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "boom", perr.Value)

	cause := errors.New("cause")
	err = SafeExecute(func() { panic(cause) })
	assert.ErrorIs(t, err, cause)

	assert.Panics(t, func() {
		_ = SafeExecute(func() { panic(&ContractError{Signal: KindNext}) })
	}, "contract violations are not converted")
}

func TestItem(t *testing.T) {
	assert.False(t, NextItem(1).IsTerminal())
	assert.True(t, ErrorItem[int](errors.New("x")).IsTerminal())
	assert.True(t, CompletedItem[int]().IsTerminal())
	assert.Equal(t, "completed", KindCompleted.String())
}
