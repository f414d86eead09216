package main

import (
	"errors"
	"fmt"

	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/policy"
	"github.com/goodtune/frms/internal/policy/opa"
	"github.com/spf13/cobra"
)

var (
	checkStart     string
	checkHours     float64
	checkPolicyDir string
)

var errDutyBlocked = errors.New("duty blocked by roster policy")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check roster decisions interactively",
	Long:  `Check what the roster gate would decide for a proposed duty.`,
}

var checkDutyCmd = &cobra.Command{
	Use:   "duty",
	Short: "Check a proposed duty against limits and roster policy",
	Long: `Evaluate the pilot's report with the proposed duty as the next duty and ask
the roster policy whether it may be rostered.`,
	Example: `  frms -c config.yaml check duty --pilot P123 --start "2026-03-29 06:00" --hours 9.5
  frms check duty --records logbook.yaml --fleet A320 --start 2026-03-29T06:00:00Z --hours 12`,
	Args: cobra.NoArgs,
	RunE: runCheckDuty,
}

func init() {
	addPilotFlags(checkDutyCmd)
	checkDutyCmd.Flags().StringVar(&reportRecords, "records", "", "Read records from a JSON or YAML file instead of the configured storage")
	checkDutyCmd.Flags().StringVar(&reportAsOf, "as-of", "", "Last day of every window (defaults to the duty start)")
	checkDutyCmd.Flags().StringVar(&checkStart, "start", "", "Duty start (required)")
	checkDutyCmd.Flags().Float64Var(&checkHours, "hours", 0, "Duty length in hours (required)")
	checkDutyCmd.Flags().StringVar(&checkPolicyDir, "policy-dir", "", "Roster policy directory (defaults to policy.opa_policy_dir)")
	_ = checkDutyCmd.MarkFlagRequired("start")
	_ = checkDutyCmd.MarkFlagRequired("hours")

	checkCmd.AddCommand(checkDutyCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheckDuty(cmd *cobra.Command, args []string) error {
	cfg, pilot, err := loadPilotConfig(cmd)
	if err != nil {
		return err
	}

	start, err := parseTimeFlag("start", checkStart)
	if err != nil {
		return err
	}
	asOf, err := parseTimeFlag("as-of", reportAsOf)
	if err != nil {
		return err
	}
	if asOf.IsZero() {
		asOf = start
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

	report, err := svc.Report(cmd.Context(), pilot, frms.Options{AsOf: asOf, CandidateStart: start})
	if err != nil {
		return err
	}

	policyDir := checkPolicyDir
	if policyDir == "" {
		policyDir = cfg.Policy.OPAPolicyDir
	}

	gate, err := policy.NewEngine(opa.Config{PolicyDir: policyDir}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize roster policy: %w", err)
	}

	candidate := policy.DutyCandidate{Start: start, DutyHours: checkHours}
	decision := gate.CheckDuty(cmd.Context(), report, candidate)

	printDecision(report, candidate, decision)

	if decision.Action == policy.ActionBlock {
		cmd.SilenceUsage = true
		return errDutyBlocked
	}
	return nil
}
