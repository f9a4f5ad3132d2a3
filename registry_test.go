package rxlite

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingScheduler 关闭时返回错误
type failingScheduler struct {
	name string
	err  error
}

func (f failingScheduler) Name() string { return f.name }

func (f failingScheduler) Schedule(task func()) (Disposable, error) {
	task()
	return emptyDisposable, nil
}

func (f failingScheduler) Close() error   { return f.err }
func (f failingScheduler) IsClosed() bool { return false }

func TestRegistry(t *testing.T) {
	t.Run("注册与查找", func(t *testing.T) {
		r := NewRegistry()
		loop := NewEventLoop("main")
		require.NoError(t, r.Register(loop))
		require.NoError(t, r.Register(NewImmediateScheduler()))

		s, err := r.Lookup("main")
		require.NoError(t, err)
		assert.Same(t, loop, s)
		assert.Equal(t, []string{"main", LaneImmediate}, r.Names())

		_, err = r.Lookup("missing")
		assert.ErrorIs(t, err, ErrUnknownScheduler)
		assert.Panics(t, func() { r.MustLookup("missing") })
	})

	t.Run("重复注册", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(NewEventLoop("main")))
		err := r.Register(NewEventLoop("main"))
		assert.ErrorIs(t, err, ErrDuplicateScheduler)
		assert.Equal(t, []string{"main"}, r.Names())
	})

	t.Run("非法参数", func(t *testing.T) {
		r := NewRegistry()
		assert.Error(t, r.RegisterAs("x", nil))
		assert.Error(t, r.RegisterAs("", NewImmediateScheduler()))
	})

	t.Run("以别名注册", func(t *testing.T) {
		r := NewRegistry()
		loop := NewEventLoop("main")
		require.NoError(t, r.RegisterAs("ui", loop))

		s := r.MustLookup("ui")
		assert.Equal(t, "ui", s.Name())

		require.NoError(t, r.Close())
		assert.True(t, loop.IsClosed(), "closing the alias closes the lane")
	})

	t.Run("关闭时汇总错误", func(t *testing.T) {
		first, second := errors.New("first"), errors.New("second")
		r := NewRegistry()
		require.NoError(t, r.Register(failingScheduler{name: "a", err: first}))
		require.NoError(t, r.Register(NewEventLoop("b")))
		require.NoError(t, r.Register(failingScheduler{name: "c", err: second}))

		err := r.Close()
		require.Error(t, err)
		var merr *multierror.Error
		require.ErrorAs(t, err, &merr)
		require.Len(t, merr.Errors, 2)
		assert.ErrorIs(t, merr.Errors[0], second, "lanes close in reverse order")
		assert.ErrorIs(t, merr.Errors[1], first)
	})

	t.Run("带指标的注册表", func(t *testing.T) {
		metrics, err := NewSchedulerMetrics(prometheus.NewRegistry())
		require.NoError(t, err)

		r := NewRegistry(WithSchedulerMetrics(metrics))
		require.NoError(t, r.Register(NewImmediateScheduler()))

		s := r.MustLookup(LaneImmediate)
		_, ok := s.(*MonitoredScheduler)
		require.True(t, ok)

		_, err = Just(1, 2).ObserveOn(Lane(LaneImmediate)).Subscribe(Observer[int]{}, WithRegistry(r))
		require.NoError(t, err)
		assert.Equal(t, 3.0, testutil.ToFloat64(metrics.completed.WithLabelValues(LaneImmediate)))
	})
}

func TestNewDefaultRegistry(t *testing.T) {
	loop := NewEventLoop("")
	r, err := NewDefaultRegistry(SchedulersConfig{IOPoolWorkers: 2}, loop)
	require.NoError(t, err)
	assert.Equal(t, []string{LaneNewThread, LaneIO, LaneMain}, r.Names())

	io, err := r.Lookup(LaneIO)
	require.NoError(t, err)
	assert.Equal(t, 2, io.(*PoolScheduler).Workers())

	require.NoError(t, r.Close())
	assert.True(t, loop.IsClosed())
	assert.True(t, io.(*PoolScheduler).IsClosed())

	_, err = NewDefaultRegistry(SchedulersConfig{}, nil)
	assert.Error(t, err)

	r, err = NewDefaultRegistry(SchedulersConfig{MainLane: "ui"}, NewEventLoop("ui"))
	require.NoError(t, err)
	assert.Equal(t, []string{LaneNewThread, LaneIO, "ui"}, r.Names())
	require.NoError(t, r.Close())
}
