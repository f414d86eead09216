package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/goodtune/frms/internal/storage/recordfile"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [flags] FILE",
	Short: "Import records from a JSON or YAML file",
	Long: `Upsert every record in FILE into the configured storage. Records without a
pilot ID are assigned --pilot (or pilot.id).`,
	Example: `  frms -c config.yaml import --pilot P123 logbook.yaml`,
	Args:    cobra.ExactArgs(1),
	RunE:    runImport,
}

func init() {
	importCmd.Flags().StringVar(&pilotID, "pilot", "", "Pilot ID for records without one (defaults to pilot.id)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pilotID != "" {
		cfg.Pilot.ID = pilotID
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read records file: %w", err)
	}

	records, err := recordfile.Parse(data, cfg.Pilot.ID)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	logger := setupLogger(cfg.Logging)

	store, err := openStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	for _, r := range records {
		if err := store.Records().Upsert(cmd.Context(), r); err != nil {
			return fmt.Errorf("failed to import record %s: %w", r.ID, err)
		}
	}

	green := color.New(color.FgGreen, color.Bold)
	_, _ = green.Printf("Imported %d record(s) from %s\n", len(records), args[0])

	return nil
}
