// Package config loads the factoryd driver settings. Sources, lowest
// priority first: built-in defaults, factoryd.yaml, .env, FACTORY_* variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "FACTORY"

type Config struct {
	// RulesDir holds materials.json, recipes.json, generators.json and tuning.yaml.
	RulesDir string `mapstructure:"rules_dir" validate:"required"`
	// DataDir receives journals, snapshots and the index database.
	DataDir string `mapstructure:"data_dir" validate:"required"`
	Seed    uint32 `mapstructure:"seed"`

	Run     RunConfig     `mapstructure:"run"`
	Index   IndexConfig   `mapstructure:"index"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type RunConfig struct {
	// TickRateHz drives automatic ADVANCE_TICK commands; 0 disables them.
	TickRateHz         float64 `mapstructure:"tick_rate_hz" validate:"gte=0,lte=1000"`
	TickBurst          int     `mapstructure:"tick_burst" validate:"gte=1"`
	MaxTicks           uint64  `mapstructure:"max_ticks"`
	SnapshotEveryTicks uint64  `mapstructure:"snapshot_every_ticks"`
	InboxSize          int     `mapstructure:"inbox_size" validate:"gte=1"`
}

type IndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type MetricsConfig struct {
	// Textfile is written in the Prometheus textfile-collector format.
	Textfile   string `mapstructure:"textfile"`
	EveryTicks uint64 `mapstructure:"every_ticks" validate:"gte=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rules_dir", "configs")
	v.SetDefault("data_dir", "data")
	v.SetDefault("seed", 12345)
	v.SetDefault("run.tick_rate_hz", 2.0)
	v.SetDefault("run.tick_burst", 1)
	v.SetDefault("run.max_ticks", 0)
	v.SetDefault("run.snapshot_every_ticks", 100)
	v.SetDefault("run.inbox_size", 256)
	v.SetDefault("index.enabled", true)
	v.SetDefault("index.path", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.every_ticks", 10)
}

// Load reads configPath when given, otherwise looks for factoryd.yaml in the
// working directory and ./configs. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("factoryd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Index.Enabled && cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join(cfg.DataDir, "index.sqlite")
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s (value %v)", e.Namespace(), e.Tag(), e.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// RunDir is where a run's journal and snapshots live.
func (c *Config) RunDir(runID string) string {
	return filepath.Join(c.DataDir, "runs", runID)
}
