package analyzer

import (
	"fmt"
	"strings"
)

// Severity represents the danger level of replaying a statement.
type Severity int

const (
	// Safe indicates no danger detected.
	Safe Severity = iota
	// Low indicates a minor concern.
	Low
	// Medium indicates moderate risk with workarounds available.
	Medium
	// High indicates significant risk, table lock or rewrite likely.
	High
	// Critical indicates data loss or extended downtime guaranteed.
	Critical
)

type severityStyle struct {
	label string
	color string
}

var severityStyles = [...]severityStyle{ //nolint:gochecknoglobals // read-only lookup table
	Safe:     {"SAFE", "\033[32m"},
	Low:      {"LOW", "\033[36m"},
	Medium:   {"MEDIUM", "\033[33m"},
	High:     {"HIGH", "\033[31m"},
	Critical: {"CRITICAL", "\033[91m"},
}

func (s Severity) style() (severityStyle, bool) {
	if s < Safe || int(s) >= len(severityStyles) {
		return severityStyle{}, false
	}

	return severityStyles[s], true
}

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	if st, ok := s.style(); ok {
		return st.label
	}

	return "UNKNOWN"
}

// Color returns an ANSI color code for terminal output.
func (s Severity) Color() string {
	if st, ok := s.style(); ok {
		return st.color
	}

	return "\033[0m"
}

// Class returns the CSS class used to flag report rows, e.g. "flag-high".
func (s Severity) Class() string {
	return "flag-" + strings.ToLower(s.String())
}

// ParseSeverity parses a label such as "high", case-insensitively.
func ParseSeverity(label string) (Severity, error) {
	for s, st := range severityStyles {
		if strings.EqualFold(st.label, strings.TrimSpace(label)) {
			return Severity(s), nil
		}
	}

	return Safe, fmt.Errorf("%w: %q", ErrUnknownSeverity, label)
}
