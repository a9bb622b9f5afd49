package core

// probe.go checks whether a remote image reference is reachable.
//
// A probe issues HEAD and falls back to GET only when the server answers
// 405 Method Not Allowed. Every probe is bounded by a timeout, and requests
// to the same host are paced by a token bucket so a large catalog pointing
// at one CDN does not hammer it.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ProbeResult is the outcome of checking one URL.
type ProbeResult struct {
	OK     bool
	Method string // method of the final request
	Status int    // 0 when no response was received
	Reason string
}

// Prober checks reachability of an https image URL.
type Prober interface {
	Probe(ctx context.Context, rawURL string) ProbeResult
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, rawURL string) ProbeResult

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, rawURL string) ProbeResult {
	return f(ctx, rawURL)
}

// Default probe settings.
const (
	DefaultProbeTimeout = 5 * time.Second
	DefaultProbeRate    = 10 // requests per second per host
	DefaultProbeBurst   = 5
	DefaultUserAgent    = "smartsync-image-probe/1.0"
)

// HTTPProberConfig configures an HTTPProber.
type HTTPProberConfig struct {
	Timeout   time.Duration
	PerHost   rate.Limit // 0 disables pacing
	Burst     int
	UserAgent string
	Client    *http.Client
}

// HTTPProber probes URLs over the network.
type HTTPProber struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	perHost   rate.Limit
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPProber creates a prober, applying defaults for zero values.
func NewHTTPProber(cfg HTTPProberConfig) *HTTPProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProbeTimeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultProbeBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		}
	}
	return &HTTPProber{
		client:    client,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		perHost:   cfg.PerHost,
		burst:     cfg.Burst,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Probe issues HEAD, retrying with GET on 405. Only a 2xx final status is OK.
func (p *HTTPProber) Probe(ctx context.Context, rawURL string) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	u, err := url.Parse(rawURL)
	if err != nil {
		return ProbeResult{Reason: fmt.Sprintf("invalid URL: %v", err)}
	}
	if err := p.wait(ctx, u.Host); err != nil {
		return ProbeResult{Reason: p.failureReason("rate limiter", err)}
	}

	status, err := p.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return ProbeResult{Method: http.MethodHead, Reason: p.failureReason("HEAD", err)}
	}
	if status == http.StatusMethodNotAllowed {
		getStatus, err := p.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return ProbeResult{Method: http.MethodGet, Reason: p.failureReason("GET after 405", err)}
		}
		if isSuccess(getStatus) {
			return ProbeResult{OK: true, Method: http.MethodGet, Status: getStatus,
				Reason: fmt.Sprintf("GET returned %d after HEAD was refused", getStatus)}
		}
		return ProbeResult{Method: http.MethodGet, Status: getStatus,
			Reason: fmt.Sprintf("GET returned %d after HEAD was refused", getStatus)}
	}
	if isSuccess(status) {
		return ProbeResult{OK: true, Method: http.MethodHead, Status: status,
			Reason: fmt.Sprintf("HEAD returned %d", status)}
	}
	return ProbeResult{Method: http.MethodHead, Status: status,
		Reason: fmt.Sprintf("HEAD returned %d", status)}
}

func (p *HTTPProber) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	// Drain a bounded amount so the connection can be reused.
	_, _ = io.CopyN(io.Discard, resp.Body, 64*1024)
	return resp.StatusCode, nil
}

func (p *HTTPProber) wait(ctx context.Context, host string) error {
	if p.perHost <= 0 {
		return nil
	}
	host = strings.ToLower(host)
	p.mu.Lock()
	lim, ok := p.limiters[host]
	if !ok {
		lim = rate.NewLimiter(p.perHost, p.burst)
		p.limiters[host] = lim
	}
	p.mu.Unlock()
	return lim.Wait(ctx)
}

func (p *HTTPProber) failureReason(stage string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s timed out after %s", stage, p.timeout)
	}
	return fmt.Sprintf("%s failed: %v", stage, err)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
