package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/policy"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func levelColor(level frms.Level) *color.Color {
	switch level {
	case frms.Compliant:
		return color.New(color.FgGreen, color.Bold)
	case frms.Warning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printHeader(title string) {
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Println()
	cyan.Println(rule)
	cyan.Println(title)
	cyan.Println(rule)
	fmt.Println()
}

// printReport prints the compliance report with colors
func printReport(report *frms.Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)

	printHeader("FRMS COMPLIANCE REPORT")

	fmt.Printf("Pilot:      %s\n", report.PilotID)
	fmt.Printf("Fleet:      %s\n", report.Fleet)
	fmt.Printf("As of:      %s\n", report.AsOf.Format("2006-01-02 15:04"))
	fmt.Println()

	cyan.Println("Cumulative limits")
	for _, w := range report.Windows {
		fmt.Printf("  %-12s %7.1f / %6.1f h  (%6.1f h left)  ", w.Kind, w.HoursUsed, w.MaxHours, w.Remaining())
		levelColor(w.Status.Level).Println(w.Status.Level)
	}
	fmt.Println()

	next := report.NextDuty
	cyan.Println("Next duty")
	fmt.Printf("  Max duty:       %.1f h", next.MaxDutyHours)
	if next.Governing != "" {
		fmt.Printf(" (limited by %s)", next.Governing)
	}
	fmt.Println()
	fmt.Printf("  Min rest:       %.1f h\n", next.MinRestHours)
	if !next.EarliestStart.IsZero() {
		fmt.Printf("  Earliest start: %s\n", next.EarliestStart.Format("2006-01-02 15:04"))
	}
	if next.Status.Message != "" {
		fmt.Printf("  Note:           %s\n", next.Status.Message)
	}
	fmt.Println()

	if report.Turnaround.Applicable {
		t := report.Turnaround
		cyan.Println("Home base turnaround")
		if t.InsufficientHistory {
			yellow.Println("  Not enough history to check")
		} else {
			fmt.Printf("  Rest:     %.1f h (minimum %.1f h)  ", t.RestHours, t.RequiredHours)
			levelColor(t.Status.Level).Println(t.Status.Level)
		}
		fmt.Println()
	}

	if report.SkippedRecords > 0 {
		yellow.Printf("Skipped %d record(s) without a usable date\n", report.SkippedRecords)
	}
	if report.InvalidRecords > 0 {
		yellow.Printf("Counted %d record(s) with invalid values using corrected duty\n", report.InvalidRecords)
	}

	cyan.Print("Status:     ")
	levelColor(report.Worst.Level).Println(report.Worst.Level)
	if report.Worst.Message != "" {
		fmt.Printf("            → %s\n", report.Worst.Message)
	}

	fmt.Println()
	cyan.Println(rule)
	fmt.Println()
}

// printDecision prints a roster gate decision with colors
func printDecision(report *frms.Report, candidate policy.DutyCandidate, decision policy.Decision) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	printHeader("ROSTER CHECK")

	fmt.Printf("Pilot:      %s (%s)\n", report.PilotID, report.Fleet)
	fmt.Printf("Duty start: %s\n", candidate.Start.Format("2006-01-02 15:04"))
	fmt.Printf("Duty hours: %.1f (max %.1f)\n", candidate.DutyHours, report.NextDuty.MaxDutyHours)
	fmt.Println()

	cyan.Print("Decision:   ")
	switch decision.Action {
	case policy.ActionAllow:
		green.Println("ALLOW")
	case policy.ActionReview:
		yellow.Println("REVIEW")
	default:
		red.Println(decision.Action)
	}

	if decision.Reason != "" {
		fmt.Printf("Reason:     %s\n", decision.Reason)
	}
	for _, a := range decision.Advisories {
		fmt.Printf("            → %s\n", a)
	}

	fmt.Println()
	cyan.Println(rule)
	fmt.Println()
}
