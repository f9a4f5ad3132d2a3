package rxlite

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ============================================================================
// lane注册表
// ============================================================================

// Registry 按名称管理lane，Lane(name)引用在订阅时通过它解析
type Registry struct {
	mu      sync.RWMutex
	lanes   map[string]Scheduler
	order   []string
	log     zerolog.Logger
	metrics *SchedulerMetrics
}

// RegistryOption 注册表配置选项
type RegistryOption func(r *Registry)

// WithRegistryLogger 指定注册表日志
func WithRegistryLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = log
	}
}

// WithSchedulerMetrics 注册的每个lane都包装为MonitoredScheduler
func WithSchedulerMetrics(metrics *SchedulerMetrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// NewRegistry 创建空注册表
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		lanes: make(map[string]Scheduler),
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	r.log = r.log.With().Str("component", "rxlite.registry").Logger()
	return r
}

// NewDefaultRegistry 注册new-thread、io-pool以及调用方提供的串行lane
func NewDefaultRegistry(cfg SchedulersConfig, main Scheduler, options ...RegistryOption) (*Registry, error) {
	if main == nil {
		return nil, errors.New("rxlite: a serial main scheduler is required")
	}
	mainLane := cfg.MainLane
	if mainLane == "" {
		mainLane = LaneMain
	}

	r := NewRegistry(options...)
	if err := r.Register(NewNewThreadScheduler()); err != nil {
		return nil, err
	}
	if err := r.Register(NewIOScheduler(cfg.IOPoolWorkers)); err != nil {
		return nil, err
	}
	if err := r.RegisterAs(mainLane, main); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// Register 以调度器自身的名称注册
func (r *Registry) Register(s Scheduler) error {
	return r.RegisterAs(s.Name(), s)
}

// RegisterAs 以指定名称注册
func (r *Registry) RegisterAs(name string, s Scheduler) error {
	if s == nil {
		return errors.Errorf("rxlite: nil scheduler for lane %q", name)
	}
	if name == "" {
		return errors.New("rxlite: lane name must not be empty")
	}
	if name != s.Name() {
		s = renamedScheduler{Scheduler: s, name: name}
	}
	if r.metrics != nil {
		s = NewMonitoredScheduler(s, r.metrics)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lanes[name]; ok {
		return errors.Wrapf(ErrDuplicateScheduler, "lane %q", name)
	}
	r.lanes[name] = s
	r.order = append(r.order, name)

	r.log.Debug().Str("lane", name).Msg("lane registered")
	return nil
}

// Lookup 按名称查找lane
func (r *Registry) Lookup(name string) (Scheduler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.lanes[name]
	if !ok {
		return nil, unknownScheduler(name)
	}
	return s, nil
}

// MustLookup 查找lane，不存在时panic
func (r *Registry) MustLookup(name string) Scheduler {
	s, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Names 按注册顺序返回lane名称
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Close 按注册的逆序关闭所有可关闭的lane
func (r *Registry) Close() error {
	r.mu.RLock()
	lanes := make([]Scheduler, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		lanes = append(lanes, r.lanes[r.order[i]])
	}
	r.mu.RUnlock()

	var result *multierror.Error
	for _, s := range lanes {
		if err := closeScheduler(s); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "closing lane %q", s.Name()))
		}
	}

	r.log.Debug().Int("lanes", len(lanes)).Msg("registry closed")
	return result.ErrorOrNil()
}
