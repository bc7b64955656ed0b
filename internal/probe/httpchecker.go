package probe

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hamed0406/uptimechecker/internal/domain"
)

type HTTPProber struct {
	Client *http.Client
	DNS    Diagnoser // optional
}

func NewHTTPProber(timeout time.Duration, dns Diagnoser) *HTTPProber {
	return &HTTPProber{
		Client: &http.Client{Timeout: timeout},
		DNS:    dns,
	}
}

func (h *HTTPProber) Probe(ctx context.Context, ep domain.Endpoint) (domain.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return domain.ProbeResult{}, &domain.ProbeError{URL: ep.URL, Err: err}
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		pe := &domain.ProbeError{URL: ep.URL, Err: err}
		// skip the lookup when the whole cycle is being torn down
		if h.DNS != nil && ctx.Err() == nil {
			pe.DNSClass = h.DNS.Diagnose(ctx, extractHost(ep.URL))
		}
		return domain.ProbeResult{}, pe
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	return domain.ProbeResult{
		URL:        ep.URL,
		StatusCode: resp.StatusCode,
		Elapsed:    elapsed,
	}, nil
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
