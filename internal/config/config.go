// Package config loads service settings from defaults, an optional YAML
// file, CUTPLAN_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/piwi3910/cutplan/internal/model"
)

// EnvPrefix is prepended to every environment override, e.g.
// CUTPLAN_SERVER_ADDR.
const EnvPrefix = "CUTPLAN"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Service   ServiceConfig   `mapstructure:"service"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=DEBUG INFO WARN ERROR PRODUCTION debug info warn error production"`
	Format string `mapstructure:"format" validate:"oneof=PRETTY CONSOLE JSON pretty console json"`
}

type ServiceConfig struct {
	MaxActiveTasks  int           `mapstructure:"max_active_tasks" validate:"gte=1"`
	TaskTimeout     time.Duration `mapstructure:"task_timeout" validate:"gt=0"`
	Retention       time.Duration `mapstructure:"retention" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// OptimizerConfig holds the defaults applied to requests that leave a
// setting empty.
type OptimizerConfig struct {
	CutThickness           string        `mapstructure:"cut_thickness" validate:"omitempty,numeric"`
	MinTrimDimension       string        `mapstructure:"min_trim_dimension" validate:"omitempty,numeric"`
	OptimizationLevel      string        `mapstructure:"optimization_level"`
	Priority               string        `mapstructure:"priority"`
	SplitPolicy            string        `mapstructure:"split_policy"`
	MaxSimultaneousTasks   int           `mapstructure:"max_simultaneous_tasks" validate:"gte=1"`
	MaxSimultaneousThreads int           `mapstructure:"max_simultaneous_threads" validate:"gte=1"`
	ThreadCheckInterval    time.Duration `mapstructure:"thread_check_interval" validate:"gt=0"`
	OffcutMinDimension     string        `mapstructure:"offcut_min_dimension" validate:"omitempty,numeric"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "PRETTY")

	v.SetDefault("service.max_active_tasks", 8)
	v.SetDefault("service.task_timeout", 10*time.Minute)
	v.SetDefault("service.retention", time.Hour)
	v.SetDefault("service.cleanup_interval", time.Minute)

	perf := model.DefaultPerformanceThresholds()
	v.SetDefault("optimizer.cut_thickness", "0")
	v.SetDefault("optimizer.min_trim_dimension", "0")
	v.SetDefault("optimizer.optimization_level", model.OptimizationStandard.String())
	v.SetDefault("optimizer.priority", model.PriorityMaterialEfficiency.String())
	v.SetDefault("optimizer.split_policy", model.SplitBoth.String())
	v.SetDefault("optimizer.max_simultaneous_tasks", perf.MaxSimultaneousTasks)
	v.SetDefault("optimizer.max_simultaneous_threads", perf.MaxSimultaneousThreads)
	v.SetDefault("optimizer.thread_check_interval", perf.ThreadCheckInterval)
	v.SetDefault("optimizer.offcut_min_dimension", "0")
}

// Load reads the configuration. path may be empty, in which case
// cutplan.yaml is looked up in the working directory and ./config. flags,
// when given, override everything else for the keys they define.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cutplan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"max-tasks":    "service.max_active_tasks",
	"task-timeout": "service.task_timeout",
	"kerf":         "optimizer.cut_thickness",
	"min-trim":     "optimizer.min_trim_dimension",
	"level":        "optimizer.optimization_level",
	"priority":     "optimizer.priority",
	"split-policy": "optimizer.split_policy",
	"threads":      "optimizer.max_simultaneous_threads",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	fs.String("log-format", "PRETTY", "log format (PRETTY, CONSOLE, JSON)")
	fs.Int("max-tasks", 8, "maximum number of active tasks")
	fs.Duration("task-timeout", 10*time.Minute, "time budget of a single task")
	fs.String("kerf", "0", "default blade thickness")
	fs.String("min-trim", "0", "default minimum offcut dimension")
	fs.String("level", "standard", "default optimization level (fast, standard, high, ultra)")
	fs.String("priority", "material_efficiency", "default priority (material_efficiency, cutting_efficiency)")
	fs.String("split-policy", "both", "guillotine split order (both, width_first, height_first)")
	fs.Int("threads", model.DefaultPerformanceThresholds().MaxSimultaneousThreads, "placement workers per material")
}

var validate = validator.New()

// Validate checks field constraints and that the optimizer defaults parse.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Optimizer.Configuration(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Configuration returns the parsed optimizer defaults. Lengths stay in the
// request's decimal form and are applied by ApplyDefaults.
func (o OptimizerConfig) Configuration() (model.Configuration, error) {
	cfg := model.DefaultConfiguration()
	var err error
	if cfg.OptimizationLevel, err = model.ParseOptimizationLevel(o.OptimizationLevel); err != nil {
		return cfg, err
	}
	if cfg.Priority, err = model.ParsePriority(o.Priority); err != nil {
		return cfg, err
	}
	if cfg.SplitPolicy, err = model.ParseSplitPolicy(o.SplitPolicy); err != nil {
		return cfg, err
	}
	cfg.Performance = model.PerformanceThresholds{
		MaxSimultaneousTasks:   o.MaxSimultaneousTasks,
		MaxSimultaneousThreads: o.MaxSimultaneousThreads,
		ThreadCheckInterval:    o.ThreadCheckInterval,
	}
	return cfg, nil
}

// ApplyDefaults fills the decimal settings a request left empty.
func (o OptimizerConfig) ApplyDefaults(in *model.ConfigurationInput) {
	if strings.TrimSpace(in.CutThickness) == "" {
		in.CutThickness = o.CutThickness
	}
	if strings.TrimSpace(in.MinTrimDimension) == "" {
		in.MinTrimDimension = o.MinTrimDimension
	}
}
