package domain

import (
	"fmt"
	"time"
)

// ProbeResult is the raw outcome of one GET. It is consumed right away and never stored.
type ProbeResult struct {
	URL        string
	StatusCode int
	Elapsed    time.Duration
}

// ProbeError is returned when no HTTP response was received at all.
type ProbeError struct {
	URL      string
	Err      error
	DNSClass string // optional diagnosis, e.g. "NXDOMAIN"
}

func (e *ProbeError) Error() string {
	if e.DNSClass != "" {
		return fmt.Sprintf("probe %s: %v (dns=%s)", e.URL, e.Err, e.DNSClass)
	}
	return fmt.Sprintf("probe %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }
