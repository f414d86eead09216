package main

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/frms/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the FRMS configuration file for syntax and semantic errors, including the fleet and limit tables.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	limits, _, err := cfg.RuleSet()
	if err != nil {
		return err
	}
	for _, fleet := range limits.Fleets() {
		_, _ = fmt.Fprintf(os.Stdout, "   %s: %d window(s), lookback %d days\n",
			fleet, len(limits.ForFleet(fleet)), limits.LookbackDays(fleet))
	}

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		defaultCfg, err := config.Defaults()
		if err != nil {
			return err
		}

		dumpConfig(cfg, defaultCfg, unknownKeys)
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := config.KnownKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config, unknownKeys []string) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	// Pilot
	_, _ = cyan.Println("\n[pilot]")
	dumpField("  id", cfg.Pilot.ID, defaultCfg.Pilot.ID, yellow, green)
	dumpField("  fleet", cfg.Pilot.Fleet, defaultCfg.Pilot.Fleet, yellow, green)
	dumpField("  home_base", cfg.Pilot.HomeBase, defaultCfg.Pilot.HomeBase, yellow, green)
	dumpField("  duty_overhead", cfg.Pilot.DutyOverhead, defaultCfg.Pilot.DutyOverhead, yellow, green)
	dumpField("  min_rest_hours", optionalHours(cfg.Pilot.MinRestHours), optionalHours(defaultCfg.Pilot.MinRestHours), yellow, green)
	dumpField("  turnaround", cfg.Pilot.Turnaround, defaultCfg.Pilot.Turnaround, yellow, green)

	// Fleets are compared row by row against the default table
	_, _ = cyan.Println("\n[fleets]")
	defaults := make(map[string]config.FleetConfig, len(defaultCfg.Fleets))
	for _, f := range defaultCfg.Fleets {
		defaults[f.Name] = f
	}
	for _, f := range cfg.Fleets {
		_, _ = cyan.Printf("  [fleets.%s]\n", f.Name)
		d := defaults[f.Name]
		dumpField("    group", f.Group, d.Group, yellow, green)
		dumpField("    min_rest_hours", f.MinRestHours, d.MinRestHours, yellow, green)
		dumpField("    max_duty_hours", f.MaxDutyHours, d.MaxDutyHours, yellow, green)
		dumpField("    long_duty_hours", f.LongDutyHours, d.LongDutyHours, yellow, green)
		dumpField("    long_duty_rest_hours", f.LongDutyRestHours, d.LongDutyRestHours, yellow, green)
		if f.Turnaround != nil || d.Turnaround != nil {
			dumpField("    turnaround", f.Turnaround, d.Turnaround, yellow, green)
		}
		for i, l := range f.Limits {
			var dl config.LimitConfig
			if i < len(d.Limits) {
				dl = d.Limits[i]
			}
			dumpField("    "+l.Kind, fmt.Sprintf("%s %dd max %.1fh warn %.2f", l.Measure, l.WindowDays, l.MaxHours, l.WarningRatio),
				fmt.Sprintf("%s %dd max %.1fh warn %.2f", dl.Measure, dl.WindowDays, dl.MaxHours, dl.WarningRatio), yellow, green)
		}
	}

	// Storage
	_, _ = cyan.Println("\n[storage]")
	dumpField("  type", cfg.Storage.Type, defaultCfg.Storage.Type, yellow, green)
	dumpField("  path", cfg.Storage.Path, defaultCfg.Storage.Path, yellow, green)
	_, _ = cyan.Println("  [storage.redis]")
	dumpField("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host, yellow, green)
	dumpField("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port, yellow, green)
	dumpField("    password", redactPassword(cfg.Storage.Redis.Password), redactPassword(defaultCfg.Storage.Redis.Password), yellow, green)
	dumpField("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB, yellow, green)
	dumpField("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize, yellow, green)
	dumpField("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns, yellow, green)
	dumpField("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout, yellow, green)
	dumpField("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout, yellow, green)
	dumpField("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout, yellow, green)

	// Logging
	_, _ = cyan.Println("\n[logging]")
	dumpField("  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField("  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)
	dumpField("  file", cfg.Logging.File, defaultCfg.Logging.File, yellow, green)
	dumpField("  max_size_mb", cfg.Logging.MaxSizeMB, defaultCfg.Logging.MaxSizeMB, yellow, green)
	dumpField("  max_backups", cfg.Logging.MaxBackups, defaultCfg.Logging.MaxBackups, yellow, green)
	dumpField("  max_age_days", cfg.Logging.MaxAgeDays, defaultCfg.Logging.MaxAgeDays, yellow, green)
	dumpField("  compress", cfg.Logging.Compress, defaultCfg.Logging.Compress, yellow, green)

	// Metrics
	_, _ = cyan.Println("\n[metrics]")
	dumpField("  enabled", cfg.Metrics.Enabled, defaultCfg.Metrics.Enabled, yellow, green)
	dumpField("  bind_address", cfg.Metrics.BindAddress, defaultCfg.Metrics.BindAddress, yellow, green)
	dumpField("  port", cfg.Metrics.Port, defaultCfg.Metrics.Port, yellow, green)

	// API
	_, _ = cyan.Println("\n[api]")
	dumpField("  enabled", cfg.API.Enabled, defaultCfg.API.Enabled, yellow, green)
	dumpField("  bind_address", cfg.API.BindAddress, defaultCfg.API.BindAddress, yellow, green)
	dumpField("  port", cfg.API.Port, defaultCfg.API.Port, yellow, green)

	// Policy
	_, _ = cyan.Println("\n[policy]")
	dumpField("  enabled", cfg.Policy.Enabled, defaultCfg.Policy.Enabled, yellow, green)
	dumpField("  opa_policy_dir", cfg.Policy.OPAPolicyDir, defaultCfg.Policy.OPAPolicyDir, yellow, green)

	// Cache and schedule
	_, _ = cyan.Println("\n[cache]")
	dumpField("  size", cfg.Cache.Size, defaultCfg.Cache.Size, yellow, green)
	_, _ = cyan.Println("\n[schedule]")
	dumpField("  rollover_time", cfg.Schedule.RolloverTime, defaultCfg.Schedule.RolloverTime, yellow, green)
	dumpField("  timezone", cfg.Schedule.Timezone, defaultCfg.Schedule.Timezone, yellow, green)

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)

		_, _ = cyan.Println("\n[UNKNOWN KEYS - These will be ignored!]")
		for _, key := range unknownKeys {
			_, _ = red.Printf("  %s = (unknown key - check for typos)\n", key)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

func optionalHours(h *float64) string {
	if h == nil {
		return "(fleet default)"
	}
	return fmt.Sprintf("%.1f", *h)
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
