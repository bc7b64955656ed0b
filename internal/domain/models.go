package domain

import (
	"fmt"
	"slices"
	"time"
)

// Endpoint is a monitored URL and the limits it is judged against.
type Endpoint struct {
	URL                   string        `json:"url"`
	MaxResponseTime       time.Duration `json:"max_response_time"`
	AcceptableStatusCodes []int         `json:"acceptable_status_codes"`
}

func (e Endpoint) Accepts(code int) bool {
	return slices.Contains(e.AcceptableStatusCodes, code)
}

type Classification string

const (
	Healthy   Classification = "Healthy"
	Slow      Classification = "Slow"
	Unhealthy Classification = "Unhealthy"
)

type IssueType string

const (
	IssueUnhealthy    IssueType = "Unhealthy"
	IssueSlowResponse IssueType = "Slow Response"
)

// IssueFor maps a classification to the alert issue it raises.
// Healthy has no issue; ok is false.
func IssueFor(c Classification) (IssueType, bool) {
	switch c {
	case Unhealthy:
		return IssueUnhealthy, true
	case Slow:
		return IssueSlowResponse, true
	}
	return "", false
}

// HealthEvent is one classified probe, written once and never updated.
type HealthEvent struct {
	EndpointURL           string         `json:"endpoint_url"`
	StatusCode            int            `json:"status_code"`
	Classification        Classification `json:"classification"`
	ResponseTime          time.Duration  `json:"response_time"`
	MaxResponseTime       time.Duration  `json:"max_response_time"`
	AcceptableStatusCodes []int          `json:"acceptable_status_codes"`
	CreatedAt             time.Time      `json:"created_at"`
}

type AlertRecord struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	EndpointURL string    `json:"endpoint_url"`
	IssueType   IssueType `json:"issue_type"`
	Message     string    `json:"message"`
}

// FormatSeconds renders a duration the way response times are stored: "0.900s".
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// PartitionKey is the calendar-month key (yyyymm, UTC) a row belongs to.
func PartitionKey(t time.Time) int {
	u := t.UTC()
	return u.Year()*100 + int(u.Month())
}
