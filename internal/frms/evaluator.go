package frms

// hoursEpsilon absorbs float summation error; values this close to a
// threshold are treated as having reached it.
const hoursEpsilon = 1e-9

// Evaluate classifies hours used against a limit entry. Both thresholds are
// closed: reaching the ceiling is a violation, reaching the warning level is a
// warning.
func Evaluate(hoursUsed float64, limit LimitEntry) Status {
	switch {
	case hoursUsed >= limit.MaxHours-hoursEpsilon:
		return Violate("%s: %.1fh used of %.1fh limit over %d days",
			limit.Kind, hoursUsed, limit.MaxHours, limit.WindowDays)
	case hoursUsed >= limit.WarningHours()-hoursEpsilon:
		return Warn("%s: %.1fh used, warning from %.1fh of %.1fh limit over %d days",
			limit.Kind, hoursUsed, limit.WarningHours(), limit.MaxHours, limit.WindowDays)
	default:
		return Ok()
	}
}

// MissingLimits is the fail-closed status for a fleet without limit entries.
func MissingLimits(fleet Fleet) Status {
	return Violate("no limits configured for fleet %q; refusing to treat it as compliant", fleet)
}
