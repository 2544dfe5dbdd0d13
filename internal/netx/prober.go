// Package netx provides reachability probe primitives for the connectivity
// monitor: a TCP dial prober and an HTTP health-endpoint prober. Each probe
// carries its own short timeout, independent of any in-flight application
// request.
package netx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultProbeTimeout bounds a single probe when the caller did not set one.
const DefaultProbeTimeout = 10 * time.Second

// Prober checks whether the backend is reachable. A nil return means
// reachable; any error means not reachable. Probers must honor ctx.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// DialProber probes by opening and immediately closing a TCP connection.
type DialProber struct {
	Addr    string
	Timeout time.Duration
}

func NewDialProber(addr string) *DialProber {
	return &DialProber{Addr: addr, Timeout: DefaultProbeTimeout}
}

func (p *DialProber) Probe(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// HTTPProber probes by issuing a GET against a health endpoint. Any
// transport error or a 5xx status counts as unreachable; a reachable server
// answering 4xx still proves connectivity.
type HTTPProber struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{URL: url, Timeout: DefaultProbeTimeout}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("health endpoint returned %s", resp.Status)
	}
	return nil
}
