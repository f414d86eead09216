package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "frms",
	Short: "FRMS - Fatigue risk management compliance engine",
	Long: `FRMS evaluates a pilot's logged flight and duty records against rolling
cumulative limits, rest requirements and home-base turnaround rules, and
projects the maximum length of the next duty.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the report command when no subcommand is provided
		return runReport(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/frms/config.yaml", "Path to configuration file")
	addPilotFlags(rootCmd)
	addReportFlags(rootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
