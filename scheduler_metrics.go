package rxlite

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
// 调度器性能监控
// ============================================================================

const (
	namespaceRx        = "rxlite"
	subsystemScheduler = "scheduler"
	labelLane          = "lane"
)

// SchedulerMetrics 按lane统计的调度指标
type SchedulerMetrics struct {
	scheduled *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewSchedulerMetrics 创建指标并注册到reg；reg为nil时不注册
func NewSchedulerMetrics(reg prometheus.Registerer) (*SchedulerMetrics, error) {
	m := &SchedulerMetrics{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceRx,
			Subsystem: subsystemScheduler,
			Name:      "tasks_scheduled_total",
			Help:      "number of tasks submitted to a lane",
		}, []string{labelLane}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceRx,
			Subsystem: subsystemScheduler,
			Name:      "tasks_rejected_total",
			Help:      "number of tasks a lane refused, e.g. after close",
		}, []string{labelLane}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceRx,
			Subsystem: subsystemScheduler,
			Name:      "tasks_completed_total",
			Help:      "number of tasks that returned normally",
		}, []string{labelLane}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceRx,
			Subsystem: subsystemScheduler,
			Name:      "tasks_failed_total",
			Help:      "number of tasks that panicked",
		}, []string{labelLane}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceRx,
			Subsystem: subsystemScheduler,
			Name:      "task_latency_seconds",
			Help:      "time from submission until a task finished",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{labelLane}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.scheduled, m.rejected, m.completed, m.failed, m.latency} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// MonitoredScheduler 带监控的调度器包装器
type MonitoredScheduler struct {
	scheduler Scheduler
	metrics   *SchedulerMetrics
}

// NewMonitoredScheduler 创建带监控的调度器
func NewMonitoredScheduler(scheduler Scheduler, metrics *SchedulerMetrics) *MonitoredScheduler {
	return &MonitoredScheduler{
		scheduler: scheduler,
		metrics:   metrics,
	}
}

// Name lane名称
func (s *MonitoredScheduler) Name() string {
	return s.scheduler.Name()
}

// Unwrap 返回被包装的调度器
func (s *MonitoredScheduler) Unwrap() Scheduler {
	return s.scheduler
}

// Schedule 调度任务并记录指标
func (s *MonitoredScheduler) Schedule(task func()) (Disposable, error) {
	lane := s.scheduler.Name()
	start := time.Now()

	d, err := s.scheduler.Schedule(func() {
		defer func() {
			s.metrics.latency.WithLabelValues(lane).Observe(time.Since(start).Seconds())
			if r := recover(); r != nil {
				s.metrics.failed.WithLabelValues(lane).Inc()
				panic(r)
			}
			s.metrics.completed.WithLabelValues(lane).Inc()
		}()

		task()
	})
	if err != nil {
		s.metrics.rejected.WithLabelValues(lane).Inc()
		return d, err
	}

	s.metrics.scheduled.WithLabelValues(lane).Inc()
	return d, nil
}

// Close 关闭被包装的调度器
func (s *MonitoredScheduler) Close() error {
	return closeScheduler(s.scheduler)
}

// IsClosed 检查被包装的调度器是否已关闭
func (s *MonitoredScheduler) IsClosed() bool {
	return isClosed(s.scheduler)
}
