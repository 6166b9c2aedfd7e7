package source

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/c360studio/semcrate/source/weburl"
	"github.com/c360studio/semstreams/pkg/errs"
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent      string        `json:"user_agent" yaml:"user_agent"`
	MaxContentSize int64         `json:"max_content_size" yaml:"max_content_size"`
	MaxRedirects   int           `json:"max_redirects" yaml:"max_redirects"`

	// AllowHTTP permits plain http URLs.
	AllowHTTP bool `json:"allow_http" yaml:"allow_http"`
	// AllowPrivate disables the private address guard. Local testing only.
	AllowPrivate bool `json:"allow_private" yaml:"allow_private"`
}

// DefaultFetcherConfig returns the default fetcher configuration.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:        30 * time.Second,
		UserAgent:      "semcrate/1.0 (+https://github.com/c360studio/semcrate)",
		MaxContentSize: 50 * 1024 * 1024,
		MaxRedirects:   5,
	}
}

func (c FetcherConfig) policy() weburl.Policy {
	return weburl.Policy{AllowHTTP: c.AllowHTTP, AllowPrivate: c.AllowPrivate}
}

// FetchResult contains the result of fetching a URL.
type FetchResult struct {
	// URL is the final URL after redirects.
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// Fetcher fetches crate metadata with security checks.
type Fetcher struct {
	client *http.Client
	cfg    FetcherConfig
}

// NewFetcher creates a new fetcher. Zero fields of cfg take their defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	def := DefaultFetcherConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxContentSize <= 0 {
		cfg.MaxContentSize = def.MaxContentSize
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = def.MaxRedirects
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	dialContext := dialer.DialContext
	if !cfg.AllowPrivate {
		// Validate resolved IPs to prevent DNS rebinding attacks
		dialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("invalid address: %w", err)
			}

			ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("DNS lookup failed: %w", err)
			}

			for _, ipAddr := range ips {
				if weburl.IsPrivateIP(ipAddr.IP) {
					return nil, fmt.Errorf("connection to private IP %s is not allowed", ipAddr.IP)
				}
			}

			for _, ipAddr := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
				if err == nil {
					return conn, nil
				}
			}

			return nil, fmt.Errorf("failed to connect to any resolved IP")
		}
	}

	transport := &http.Transport{
		DialContext:           dialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	policy := cfg.policy()
	maxRedirects := cfg.MaxRedirects
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				if err := policy.Validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		cfg: cfg,
	}
}

// Fetch retrieves urlStr. A 404 wraps ErrNotFound; server errors and
// network failures are transient.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*FetchResult, error) {
	if err := f.cfg.policy().Validate(urlStr); err != nil {
		return nil, errs.WrapInvalid(err, "Fetcher", "Fetch", "validate "+urlStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/ld+json, application/json;q=0.9, text/html;q=0.8, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.WrapTransient(err, "Fetcher", "Fetch", "fetch "+urlStr)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w (HTTP 404)", urlStr, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errs.WrapTransient(fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			"Fetcher", "Fetch", "fetch "+urlStr)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: HTTP %d: %s", urlStr, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxContentSize+1))
	if err != nil {
		return nil, errs.WrapTransient(err, "Fetcher", "Fetch", "read body of "+urlStr)
	}
	if int64(len(body)) > f.cfg.MaxContentSize {
		return nil, fmt.Errorf("fetch %s: content too large (exceeds %d bytes)", urlStr, f.cfg.MaxContentSize)
	}

	return &FetchResult{
		URL:         resp.Request.URL.String(),
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}
