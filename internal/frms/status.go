package frms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is a compliance classification. Higher is worse.
type Level int

const (
	Compliant Level = iota
	Warning
	Violation
)

// String returns the upper-case name of the level.
func (l Level) String() string {
	switch l {
	case Compliant:
		return "COMPLIANT"
	case Warning:
		return "WARNING"
	case Violation:
		return "VIOLATION"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// MarshalJSON implements json.Marshaler to ensure upper-case output.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler, accepting any case.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch strings.ToUpper(s) {
	case "COMPLIANT":
		*l = Compliant
	case "WARNING":
		*l = Warning
	case "VIOLATION":
		*l = Violation
	default:
		return fmt.Errorf("invalid level: %s (must be COMPLIANT, WARNING, or VIOLATION)", s)
	}
	return nil
}

// Status is a compliance classification with a human-readable message.
type Status struct {
	Level   Level  `json:"level"`
	Message string `json:"message,omitempty"`
}

// Ok returns a compliant status.
func Ok() Status {
	return Status{Level: Compliant}
}

// Warn returns a warning status.
func Warn(format string, args ...interface{}) Status {
	return Status{Level: Warning, Message: fmt.Sprintf(format, args...)}
}

// Violate returns a violation status.
func Violate(format string, args ...interface{}) Status {
	return Status{Level: Violation, Message: fmt.Sprintf(format, args...)}
}

// IsViolation reports whether s is a violation.
func (s Status) IsViolation() bool {
	return s.Level == Violation
}

// String formats the status for logs and terminals.
func (s Status) String() string {
	if s.Message == "" {
		return s.Level.String()
	}
	return s.Level.String() + ": " + s.Message
}

// Worst returns the most severe status. The first of equally severe statuses
// wins; an empty call is compliant.
func Worst(statuses ...Status) Status {
	worst := Ok()
	for _, s := range statuses {
		if s.Level > worst.Level {
			worst = s
		}
	}
	return worst
}
