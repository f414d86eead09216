package policy

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Action represents the roster gate decision
type Action string

const (
	ActionAllow  Action = "ALLOW"
	ActionReview Action = "REVIEW"
	ActionBlock  Action = "BLOCK"
)

// ParseAction normalizes a policy action to upper case
func ParseAction(s string) (Action, error) {
	normalized := Action(strings.ToUpper(strings.TrimSpace(s)))

	switch normalized {
	case ActionAllow, ActionReview, ActionBlock:
		return normalized, nil
	default:
		return "", fmt.Errorf("invalid action: %s (must be ALLOW, REVIEW, or BLOCK)", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler to normalize action to uppercase.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON implements json.Marshaler to ensure uppercase output.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// DutyCandidate is a duty proposed for rostering
type DutyCandidate struct {
	Start     time.Time `json:"start"`
	DutyHours float64   `json:"duty_hours"`
}

// Decision is the result of the roster gate
type Decision struct {
	Action     Action   `json:"action"`
	Reason     string   `json:"reason"`
	Advisories []string `json:"advisories,omitempty"`
}

// Allowed reports whether the duty may be rostered without review
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}
