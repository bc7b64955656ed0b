package probe

import (
	"context"

	"github.com/hamed0406/uptimechecker/internal/domain"
)

// Prober performs a single check against an endpoint.
//
// A non-nil error is a *domain.ProbeError: no response was received
// (timeout, DNS, refused). Any HTTP status, 5xx included, is a result.
type Prober interface {
	Probe(ctx context.Context, ep domain.Endpoint) (domain.ProbeResult, error)
}

// Diagnoser explains a transport failure for a host, e.g. "NXDOMAIN".
type Diagnoser interface {
	Diagnose(ctx context.Context, host string) string
}
