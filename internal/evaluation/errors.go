package evaluation

import (
	"fmt"
	"strings"
)

// ConfigError reports invalid evaluation parameters or a missing
// required column. It is raised immediately and never retried.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func configErrorf(format string, a ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, a...)}
}

// LookaheadViolation reports a feature that fails the temporal
// integrity invariant: its historical values changed when only future
// rows were mutated, or its name marks it as future-indexed. It is
// always fatal to the run that discovered it and must never be
// downgraded to a warning.
type LookaheadViolation struct {
	Columns []string
	Rows    []int
	Reason  string
}

func (e *LookaheadViolation) Error() string {
	var b strings.Builder
	b.WriteString("lookahead violation")
	if len(e.Columns) > 0 {
		fmt.Fprintf(&b, " in columns [%s]", strings.Join(e.Columns, ", "))
	}
	if len(e.Rows) > 0 {
		n := len(e.Rows)
		if n > 8 {
			fmt.Fprintf(&b, " at %d rows (first %v)", n, e.Rows[:8])
		} else {
			fmt.Fprintf(&b, " at rows %v", e.Rows)
		}
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// SystemicSkipError is returned when too many windows failed training
// for the pooled metrics to be trustworthy.
type SystemicSkipError struct {
	Skipped int
	Total   int
}

func (e *SystemicSkipError) Error() string {
	return fmt.Sprintf("walk-forward evaluation skipped %d of %d windows; result discarded as unreliable", e.Skipped, e.Total)
}
