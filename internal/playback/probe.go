package playback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ProbeResult is the outcome of a reachability check.
type ProbeResult struct {
	Reachable bool          `json:"reachable"`
	Reason    string        `json:"reason,omitempty"`
	Status    int           `json:"status,omitempty"`
	Latency   time.Duration `json:"latency"`
}

// Prober checks that a media source exists without downloading it. Probe is
// called on its own goroutine and must honour ctx cancellation.
type Prober interface {
	Probe(ctx context.Context, source string) ProbeResult
}

type ProberFunc func(ctx context.Context, source string) ProbeResult

func (f ProberFunc) Probe(ctx context.Context, source string) ProbeResult {
	return f(ctx, source)
}

// HTTPProber issues a HEAD request (or a one byte ranged GET when HEAD is
// refused) against http(s) sources and stats local files.
type HTTPProber struct {
	Client  *http.Client
	BaseURL *url.URL
}

func NewHTTPProber(client *http.Client, baseURL string) (*HTTPProber, error) {
	if client == nil {
		client = http.DefaultClient
	}
	p := &HTTPProber{Client: client}
	if strings.TrimSpace(baseURL) != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse probe base url: %w", err)
		}
		p.BaseURL = u
	}
	return p, nil
}

func (p *HTTPProber) Probe(ctx context.Context, source string) ProbeResult {
	start := time.Now()
	source = strings.TrimSpace(source)
	if source == "" {
		return ProbeResult{Reason: "empty source"}
	}
	u, err := url.Parse(source)
	if err != nil {
		return ProbeResult{Reason: err.Error()}
	}
	switch {
	case u.Scheme == "file":
		return statFile(u.Path, start)
	case u.Scheme == "" && p.BaseURL == nil && strings.HasPrefix(source, "/"):
		return statFile(source, start)
	case u.Scheme == "":
		if p.BaseURL == nil {
			return ProbeResult{Reason: "relative source without base url"}
		}
		u = p.BaseURL.ResolveReference(u)
	case u.Scheme != "http" && u.Scheme != "https":
		return ProbeResult{Reason: "unsupported scheme " + u.Scheme}
	}

	status, err := p.do(ctx, http.MethodHead, u.String())
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = p.do(ctx, http.MethodGet, u.String())
	}
	latency := time.Since(start)
	if err != nil {
		return ProbeResult{Reason: err.Error(), Latency: latency}
	}
	if status >= 200 && status < 300 {
		return ProbeResult{Reachable: true, Status: status, Latency: latency}
	}
	return ProbeResult{Reason: fmt.Sprintf("status %d", status), Status: status, Latency: latency}
}

func (p *HTTPProber) do(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func statFile(path string, start time.Time) ProbeResult {
	info, err := os.Stat(path)
	if err != nil {
		return ProbeResult{Reason: err.Error(), Latency: time.Since(start)}
	}
	if info.IsDir() {
		return ProbeResult{Reason: "source is a directory", Latency: time.Since(start)}
	}
	return ProbeResult{Reachable: true, Latency: time.Since(start)}
}
