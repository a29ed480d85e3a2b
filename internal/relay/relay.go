// Package relay forwards API calls under a path prefix to the target
// backend, streaming requests and responses through unchanged.
package relay

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/metrics"
)

// Config configures a Relay.
type Config struct {
	TargetBaseURL string
	// Excluded are doublestar patterns matched against the request path.
	Excluded []string
	// ServiceToken, when set, replaces the caller's Authorization header.
	ServiceToken          string
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
}

// Relay is an http.Handler proxying to a single backend.
type Relay struct {
	excluded []string
	proxy    *httputil.ReverseProxy
}

// New creates a relay for cfg.TargetBaseURL.
func New(cfg Config) (*Relay, error) {
	target, err := url.Parse(cfg.TargetBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing target base URL: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" || target.Host == "" {
		return nil, fmt.Errorf("target base URL %q must be absolute http(s)", cfg.TargetBaseURL)
	}
	for _, p := range cfg.Excluded {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid excluded pattern %q", p)
		}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	rl := &Relay{excluded: cfg.Excluded}
	rl.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			// Only plain request/response exchanges are relayed.
			pr.Out.Header.Del("Connection")
			pr.Out.Header.Del("Upgrade")
			pr.Out.Header.Del("Te")
			if cfg.ServiceToken != "" {
				pr.Out.Header.Set("Authorization", "Bearer "+cfg.ServiceToken)
			}
			reqID := chimw.GetReqID(pr.In.Context())
			if reqID == "" {
				reqID = uuid.NewString()
			}
			pr.Out.Header.Set("X-Request-ID", reqID)
		},
		Transport:      otelhttp.NewTransport(transport),
		FlushInterval:  -1,
		ModifyResponse: rl.observe,
		ErrorHandler:   rl.handleError,
	}
	return rl, nil
}

// Excluded reports whether path must not be relayed.
func (rl *Relay) Excluded(path string) bool {
	for _, p := range rl.excluded {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if rl.Excluded(r.URL.Path) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	// Streamed bodies may outlive the server's read and write timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	r = r.WithContext(withStart(r.Context(), time.Now()))
	rl.proxy.ServeHTTP(w, r)
}

func (rl *Relay) observe(resp *http.Response) error {
	req := resp.Request
	metrics.RelayRequests.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	if start, ok := startFrom(req.Context()); ok {
		metrics.RelayDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	}
	return nil
}

func (rl *Relay) handleError(w http.ResponseWriter, r *http.Request, err error) {
	metrics.RelayRequests.WithLabelValues(r.Method, "error").Inc()
	logger.FromContext(r.Context()).Error("relay request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(http.StatusBadGateway),
		"message": "upstream request failed",
	})
}
