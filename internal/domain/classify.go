package domain

import "time"

// Classify labels a probe. An unacceptable status code wins over latency,
// so a fast 500 is still Unhealthy.
func Classify(statusCode int, elapsed time.Duration, ep Endpoint) Classification {
	if !ep.Accepts(statusCode) {
		return Unhealthy
	}
	if elapsed > ep.MaxResponseTime {
		return Slow
	}
	return Healthy
}
