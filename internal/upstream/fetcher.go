// Package upstream fetches OpenAPI documents from the services behind the
// gateway and caches them.
package upstream

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/freema/docsgate/internal/apperror"
	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/metrics"
)

// MaxSpecSize caps how much of an upstream document is read.
const MaxSpecSize = 32 << 20

// Source returns the raw bytes of the document at url.
type Source interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Fetcher retrieves documents over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with the given dial and overall timeouts.
func NewFetcher(connectTimeout, timeout time.Duration) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// Fetch GETs url. Transport failures and non-2xx responses are reported as
// bad-gateway errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.SpecFetchDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.SpecFetches.WithLabelValues("invalid").Inc()
		return nil, apperror.BadGateway("invalid upstream spec URL %q: %v", url, err)
	}
	req.Header.Set("Accept", "application/json, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.SpecFetches.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Warn("spec fetch failed", "url", url, "error", err)
		return nil, apperror.BadGateway("fetching upstream spec: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.SpecFetches.WithLabelValues("non_2xx").Inc()
		logger.FromContext(ctx).Warn("spec fetch non-2xx response", "url", url, "status", resp.StatusCode)
		return nil, apperror.BadGateway("upstream spec returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxSpecSize+1))
	if err != nil {
		metrics.SpecFetches.WithLabelValues("error").Inc()
		return nil, apperror.BadGateway("reading upstream spec: %v", err)
	}
	if len(body) > MaxSpecSize {
		metrics.SpecFetches.WithLabelValues("too_large").Inc()
		return nil, apperror.BadGateway("upstream spec exceeds %d bytes", MaxSpecSize)
	}

	metrics.SpecFetches.WithLabelValues("success").Inc()
	logger.FromContext(ctx).Debug("spec fetched", "url", url, "bytes", len(body))
	return body, nil
}

var _ Source = (*Fetcher)(nil)
