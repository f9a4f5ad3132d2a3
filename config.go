package rxlite

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// 订阅配置选项
// ============================================================================

// Option 配置选项接口
type Option interface {
	Apply(config *Config)
}

// Config 订阅时使用的配置
type Config struct {
	// Logger 结构化日志，默认不输出
	Logger zerolog.Logger
	// Registry 用于解析 Lane(name) 引用
	Registry *Registry
	// OnViolation 协议违规处理函数，默认记录日志后panic
	OnViolation func(err *ContractError)
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Logger: zerolog.Nop(),
	}
}

func newConfig(options []Option) *Config {
	config := DefaultConfig()
	for _, opt := range options {
		if opt != nil {
			opt.Apply(config)
		}
	}
	return config
}

// OptionFunc 函数形式的选项
type OptionFunc func(config *Config)

// Apply 应用选项
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithLogger 指定日志
func WithLogger(logger zerolog.Logger) Option {
	return OptionFunc(func(config *Config) {
		config.Logger = logger
	})
}

// WithRegistry 指定lane注册表
func WithRegistry(registry *Registry) Option {
	return OptionFunc(func(config *Config) {
		config.Registry = registry
	})
}

// WithViolationHandler 替换默认的协议违规处理
func WithViolationHandler(handler func(err *ContractError)) Option {
	return OptionFunc(func(config *Config) {
		config.OnViolation = handler
	})
}

// ============================================================================
// 文件配置
// ============================================================================

// FileConfig 可选的rxlite.yaml配置文件
type FileConfig struct {
	LogLevel   string           `yaml:"log_level,omitempty"`
	Metrics    bool             `yaml:"metrics,omitempty"`
	Schedulers SchedulersConfig `yaml:"schedulers"`
}

// SchedulersConfig NewDefaultRegistry使用的lane配置
type SchedulersConfig struct {
	// IOPoolWorkers io-pool的并发上限，0表示CPU数量
	IOPoolWorkers int `yaml:"io_pool_workers,omitempty"`
	// MainLane 串行lane的注册名称
	MainLane string `yaml:"main_lane,omitempty"`
}

// DefaultFileConfig 没有配置文件时使用的默认值
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		LogLevel: zerolog.InfoLevel.String(),
		Schedulers: SchedulersConfig{
			IOPoolWorkers: runtime.NumCPU(),
			MainLane:      LaneMain,
		},
	}
}

// LoadConfig 读取配置文件，文件不存在时返回默认值
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultFileConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return cfg, nil
}

// ParseConfig 在默认值之上解析YAML并校验
func ParseConfig(data []byte) (*FileConfig, error) {
	cfg := DefaultFileConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查取值范围并补全空字段
func (c *FileConfig) Validate() error {
	if c.Schedulers.IOPoolWorkers < 0 {
		return errors.Errorf("schedulers.io_pool_workers must not be negative, got %d", c.Schedulers.IOPoolWorkers)
	}
	if c.Schedulers.IOPoolWorkers == 0 {
		c.Schedulers.IOPoolWorkers = runtime.NumCPU()
	}

	c.Schedulers.MainLane = strings.TrimSpace(c.Schedulers.MainLane)
	if c.Schedulers.MainLane == "" {
		c.Schedulers.MainLane = LaneMain
	}
	if c.Schedulers.MainLane == LaneNewThread || c.Schedulers.MainLane == LaneIO {
		return errors.Errorf("schedulers.main_lane %q collides with a built-in lane", c.Schedulers.MainLane)
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level 解析日志级别
func (c *FileConfig) Level() (zerolog.Level, error) {
	if strings.TrimSpace(c.LogLevel) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// NewLogger 按配置的级别创建写入w的日志
func (c *FileConfig) NewLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
