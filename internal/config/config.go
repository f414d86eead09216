package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goodtune/frms/internal/frms"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Pilot    PilotConfig    `mapstructure:"pilot"`
	Fleets   []FleetConfig  `mapstructure:"fleets" validate:"required,min=1,dive"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	API      APIConfig      `mapstructure:"api"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// PilotConfig is the pilot evaluated when the CLI is not told otherwise
type PilotConfig struct {
	ID           string            `mapstructure:"id"`
	Fleet        string            `mapstructure:"fleet"`
	HomeBase     string            `mapstructure:"home_base"`
	DutyOverhead float64           `mapstructure:"duty_overhead" validate:"gte=0"`
	MinRestHours *float64          `mapstructure:"min_rest_hours" validate:"omitempty,gt=0"`
	Turnaround   *TurnaroundConfig `mapstructure:"turnaround" validate:"omitempty"`
}

// FleetConfig is one row of the fleet table together with its limits
type FleetConfig struct {
	Name              string            `mapstructure:"name" validate:"required"`
	Group             string            `mapstructure:"group" validate:"required,oneof=short_haul long_haul"`
	MinRestHours      float64           `mapstructure:"min_rest_hours" validate:"gte=0"`
	MaxDutyHours      float64           `mapstructure:"max_duty_hours" validate:"gte=0"`
	LongDutyHours     float64           `mapstructure:"long_duty_hours" validate:"gte=0"`
	LongDutyRestHours float64           `mapstructure:"long_duty_rest_hours" validate:"gte=0"`
	Turnaround        *TurnaroundConfig `mapstructure:"turnaround" validate:"omitempty"`
	Limits            []LimitConfig     `mapstructure:"limits" validate:"required,min=1,dive"`
}

// TurnaroundConfig defines home-base rest between rotations
type TurnaroundConfig struct {
	MinRestHours       float64 `mapstructure:"min_rest_hours" validate:"gt=0"`
	WarningMarginHours float64 `mapstructure:"warning_margin_hours" validate:"gte=0"`
}

// LimitConfig defines one rolling-window threshold
type LimitConfig struct {
	Kind         string  `mapstructure:"kind" validate:"required"`
	Measure      string  `mapstructure:"measure" validate:"required,oneof=flight duty"`
	WindowDays   int     `mapstructure:"window_days" validate:"gt=0"`
	MaxHours     float64 `mapstructure:"max_hours" validate:"gt=0"`
	WarningRatio float64 `mapstructure:"warning_ratio" validate:"gt=0,lte=1"`
}

// StorageConfig defines where records are read from
type StorageConfig struct {
	Type  string      `mapstructure:"type" validate:"oneof=redis file"`
	Path  string      `mapstructure:"path"` // JSON records file when type is "file"
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"` // empty logs to stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// APIConfig defines the JSON API served by "frms serve"
type APIConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// PolicyConfig defines the roster gate
type PolicyConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OPAPolicyDir string `mapstructure:"opa_policy_dir"`
}

// CacheConfig defines the report cache
type CacheConfig struct {
	Size int `mapstructure:"size" validate:"gte=0"`
}

// ScheduleConfig defines when windows roll over to a new day
type ScheduleConfig struct {
	RolloverTime string `mapstructure:"rollover_time"` // HH:MM
	Timezone     string `mapstructure:"timezone"`
}

// Location returns the time zone used for day rollover.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FRMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, use defaults and environment variables
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	return &config, nil
}

// optionalKeys are recognized keys that carry no default.
var optionalKeys = []string{
	"pilot.id",
	"pilot.fleet",
	"pilot.home_base",
	"pilot.min_rest_hours",
	"pilot.turnaround.min_rest_hours",
	"pilot.turnaround.warning_margin_hours",
}

// KnownKeys returns the set of recognized configuration keys. Fleet rows are
// a list and appear as the single key "fleets".
func KnownKeys() map[string]bool {
	v := viper.New()
	setDefaults(v)

	keys := make(map[string]bool)
	for _, k := range v.AllKeys() {
		keys[k] = true
	}
	for _, k := range optionalKeys {
		keys[k] = true
	}
	return keys
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Pilot defaults
	v.SetDefault("pilot.duty_overhead", frms.DefaultDutyOverhead)

	// Fleet table. Illustrative only; replace with your regulator's thresholds.
	v.SetDefault("fleets", DefaultFleets())

	// Storage defaults
	v.SetDefault("storage.type", "redis")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 64)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 14)
	v.SetDefault("logging.compress", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.bind_address", "0.0.0.0")
	v.SetDefault("metrics.port", 9090)

	// API defaults
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.bind_address", "127.0.0.1")
	v.SetDefault("api.port", 8080)

	// Policy defaults
	v.SetDefault("policy.enabled", false)
	v.SetDefault("policy.opa_policy_dir", "/etc/frms/policies")

	// Cache defaults
	v.SetDefault("cache.size", 256)

	// Schedule defaults
	v.SetDefault("schedule.rollover_time", "00:00")
	v.SetDefault("schedule.timezone", "")
}

// DefaultFleets returns the illustrative fleet table in the shape viper
// decodes into []FleetConfig.
func DefaultFleets() []map[string]interface{} {
	shortHaul := []map[string]interface{}{
		limitRow("flight_28d", "flight", 28, 100, 0.9),
		limitRow("flight_365d", "flight", 365, 900, 0.9),
		limitRow("duty_7d", "duty", 7, 60, 0.85),
		limitRow("duty_14d", "duty", 14, 110, 0.9),
		limitRow("duty_28d", "duty", 28, 190, 0.9),
	}
	longHaul := []map[string]interface{}{
		limitRow("flight_28d", "flight", 28, 100, 0.9),
		limitRow("flight_365d", "flight", 365, 900, 0.9),
		limitRow("duty_7d", "duty", 7, 60, 0.85),
		limitRow("duty_28d", "duty", 28, 190, 0.9),
	}

	fleet := func(name, group string, rest, maxDuty, longDuty, longRest float64, limits []map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"name":                 name,
			"group":                group,
			"min_rest_hours":       rest,
			"max_duty_hours":       maxDuty,
			"long_duty_hours":      longDuty,
			"long_duty_rest_hours": longRest,
			"limits":               limits,
		}
	}

	a350 := fleet("A350", "long_haul", 12, 18, 14, 24, longHaul)
	b787 := fleet("B787", "long_haul", 12, 18, 14, 24, longHaul)
	for _, f := range []map[string]interface{}{a350, b787} {
		f["turnaround"] = map[string]interface{}{
			"min_rest_hours":       36.0,
			"warning_margin_hours": 6.0,
		}
	}

	return []map[string]interface{}{
		fleet("A320", "short_haul", 10, 13, 12, 14, shortHaul),
		fleet("B737", "short_haul", 10, 13, 12, 14, shortHaul),
		a350,
		b787,
	}
}

func limitRow(kind, measure string, days int, max, ratio float64) map[string]interface{} {
	return map[string]interface{}{
		"kind":          kind,
		"measure":       measure,
		"window_days":   days,
		"max_hours":     max,
		"warning_ratio": ratio,
	}
}

// validate validates the configuration
func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("failed field validation: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Fleets))
	for _, f := range cfg.Fleets {
		if seen[f.Name] {
			return fmt.Errorf("duplicate fleet: %s", f.Name)
		}
		seen[f.Name] = true
	}

	if cfg.Pilot.Fleet != "" && !seen[cfg.Pilot.Fleet] {
		return fmt.Errorf("pilot fleet %q is not in the fleet table", cfg.Pilot.Fleet)
	}

	if _, _, err := cfg.RuleSet(); err != nil {
		return err
	}

	if cfg.Storage.Type == "file" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage path is required for file storage")
	}

	if _, err := time.Parse("15:04", cfg.Schedule.RolloverTime); err != nil {
		return fmt.Errorf("invalid rollover time %q (expected HH:MM): %w", cfg.Schedule.RolloverTime, err)
	}
	if _, err := cfg.Schedule.Location(); err != nil {
		return err
	}

	if cfg.Policy.Enabled && cfg.Policy.OPAPolicyDir == "" {
		return fmt.Errorf("policy directory is required when the roster gate is enabled")
	}

	return nil
}

// RuleSet converts the fleet section into the engine's lookup tables.
func (c *Config) RuleSet() (*frms.LimitTable, frms.FleetTable, error) {
	fleets := make(frms.FleetTable, len(c.Fleets))
	var entries []frms.LimitEntry

	for _, f := range c.Fleets {
		group, err := frms.ParseFleetGroup(f.Group)
		if err != nil {
			return nil, nil, fmt.Errorf("fleet %s: %w", f.Name, err)
		}

		profile := frms.FleetProfile{
			Fleet:             frms.Fleet(f.Name),
			Group:             group,
			MinRestHours:      f.MinRestHours,
			MaxDutyHours:      f.MaxDutyHours,
			LongDutyHours:     f.LongDutyHours,
			LongDutyRestHours: f.LongDutyRestHours,
			Turnaround:        f.Turnaround.rule(),
		}
		fleets[profile.Fleet] = profile

		for _, l := range f.Limits {
			measure, err := frms.ParseMeasure(l.Measure)
			if err != nil {
				return nil, nil, fmt.Errorf("fleet %s limit %s: %w", f.Name, l.Kind, err)
			}
			entries = append(entries, frms.LimitEntry{
				Fleet:        profile.Fleet,
				Kind:         frms.WindowKind(l.Kind),
				Measure:      measure,
				WindowDays:   l.WindowDays,
				MaxHours:     l.MaxHours,
				WarningRatio: l.WarningRatio,
			})
		}
	}

	limits, err := frms.NewLimitTable(entries...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build limit table: %w", err)
	}

	return limits, fleets, nil
}

// Configuration returns the pilot section as an engine configuration value.
func (c *Config) Configuration() frms.Configuration {
	cfg := frms.Configuration{
		PilotID:      c.Pilot.ID,
		Fleet:        frms.Fleet(c.Pilot.Fleet),
		HomeBase:     c.Pilot.HomeBase,
		DutyOverhead: c.Pilot.DutyOverhead,
		Turnaround:   c.Pilot.Turnaround.rule(),
	}
	if c.Pilot.MinRestHours != nil {
		rest := *c.Pilot.MinRestHours
		cfg.MinRestHours = &rest
	}
	return cfg
}

func (t *TurnaroundConfig) rule() *frms.TurnaroundRule {
	if t == nil {
		return nil
	}
	return &frms.TurnaroundRule{
		MinRestHours:       t.MinRestHours,
		WarningMarginHours: t.WarningMarginHours,
	}
}
