package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/goodtune/frms/internal/compliance"
	"github.com/goodtune/frms/internal/config"
	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	pilotID       string
	pilotFleet    string
	pilotHomeBase string
	pilotMinRest  float64

	reportAsOf      string
	reportCandidate string
	reportRecords   string
	reportJSON      bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a pilot's compliance report",
	Long:  `Evaluate a pilot's records against the fleet's cumulative limits and print the compliance report.`,
	Example: `  frms report --pilot P123 --fleet A320
  frms report --records logbook.yaml --fleet B787 --home-base SYD --as-of 2026-03-28
  frms -c config.yaml report --pilot P123 --json`,
	RunE: runReport,
}

func init() {
	addPilotFlags(reportCmd)
	addReportFlags(reportCmd)
	rootCmd.AddCommand(reportCmd)
}

func addPilotFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pilotID, "pilot", "", "Pilot ID (defaults to pilot.id)")
	cmd.Flags().StringVar(&pilotFleet, "fleet", "", "Fleet tag (defaults to pilot.fleet)")
	cmd.Flags().StringVar(&pilotHomeBase, "home-base", "", "Home base airport (defaults to pilot.home_base)")
	cmd.Flags().Float64Var(&pilotMinRest, "min-rest", 0, "Minimum rest in hours, raises the fleet floor")
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reportAsOf, "as-of", "", "Last day of every window (YYYY-MM-DD or RFC3339, defaults to now)")
	cmd.Flags().StringVar(&reportCandidate, "candidate", "", "Start of the next duty (defaults to --as-of)")
	cmd.Flags().StringVar(&reportRecords, "records", "", "Read records from a JSON or YAML file instead of the configured storage")
	cmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// loadPilotConfig loads configuration and applies the pilot flags
func loadPilotConfig(cmd *cobra.Command) (*config.Config, frms.Configuration, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, frms.Configuration{}, err
	}

	if reportRecords != "" {
		cfg.Storage.Type = "file"
		cfg.Storage.Path = reportRecords
	}

	if pilotID != "" {
		cfg.Pilot.ID = pilotID
	}
	if pilotFleet != "" {
		cfg.Pilot.Fleet = pilotFleet
	}
	if pilotHomeBase != "" {
		cfg.Pilot.HomeBase = pilotHomeBase
	}
	if cmd.Flags().Changed("min-rest") {
		rest := pilotMinRest
		cfg.Pilot.MinRestHours = &rest
	}

	// Records files may omit pilot IDs entirely
	if cfg.Pilot.ID == "" && cfg.Storage.Type == "file" {
		cfg.Pilot.ID = "default"
	}

	pilot := cfg.Configuration()
	if pilot.PilotID == "" {
		return nil, pilot, fmt.Errorf("pilot ID is required (set pilot.id or --pilot)")
	}
	if pilot.Fleet == "" {
		return nil, pilot, fmt.Errorf("fleet is required (set pilot.fleet or --fleet)")
	}

	return cfg, pilot, nil
}

// newService builds the report engine and compliance service
func newService(cfg *config.Config, records storage.RecordStore, logger zerolog.Logger) (*compliance.Service, error) {
	limits, fleets, err := cfg.RuleSet()
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, err
	}
	engine := frms.NewEngine(limits, fleets, logger)
	engine.SetClock(frms.ZonedClock{Location: loc})
	return compliance.NewService(records, engine, cfg.Cache.Size, logger)
}

// parseTimeFlag parses an optional date or timestamp flag
func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, ok := storage.ParseTime(value)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --%s: %s", name, value)
	}
	return t, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, pilot, err := loadPilotConfig(cmd)
	if err != nil {
		return err
	}

	asOf, err := parseTimeFlag("as-of", reportAsOf)
	if err != nil {
		return err
	}
	candidate, err := parseTimeFlag("candidate", reportCandidate)
	if err != nil {
		return err
	}

	logger := quietLogger()

	store, err := openStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	svc, err := newService(cfg, store.Records(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize compliance service: %w", err)
	}

	report, err := svc.Report(cmd.Context(), pilot, frms.Options{AsOf: asOf, CandidateStart: candidate})
	if err != nil {
		return err
	}

	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report)
	return nil
}
