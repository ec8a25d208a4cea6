package ingest

import "fmt"

// Summary aggregates the outcome of one run. Counters only ever increase;
// warnings keep their emission order.
type Summary struct {
	Processed int
	Created   int
	Updated   int
	Skipped   int
	Warnings  []string
}

// Warnf records a formatted warning.
func (s *Summary) Warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Warn records pre-formatted warnings.
func (s *Summary) Warn(warnings ...string) {
	s.Warnings = append(s.Warnings, warnings...)
}
