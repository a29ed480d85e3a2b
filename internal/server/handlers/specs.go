package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/codes"

	"github.com/freema/docsgate/internal/apperror"
	"github.com/freema/docsgate/internal/catalog"
	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/metrics"
	"github.com/freema/docsgate/internal/rewrite"
	"github.com/freema/docsgate/internal/tracing"
	"github.com/freema/docsgate/internal/upstream"
)

// SpecsHandler serves upstream specs rewritten to route through the gateway.
type SpecsHandler struct {
	catalog            *catalog.Catalog
	source             upstream.Source
	trustForwardedHost bool
}

// NewSpecsHandler creates a specs handler fetching through source.
func NewSpecsHandler(c *catalog.Catalog, source upstream.Source, trustForwardedHost bool) *SpecsHandler {
	return &SpecsHandler{catalog: c, source: source, trustForwardedHost: trustForwardedHost}
}

// External fetches and rewrites the spec registered under {name}.
// Errors are plain text so Swagger UI can display them.
func (h *SpecsHandler) External(w http.ResponseWriter, r *http.Request) {
	api, err := h.catalog.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		writeText(w, apperror.HTTPStatus(err), apperror.Message(err))
		return
	}

	ctx, span := tracing.Tracer().Start(r.Context(), "spec.external",
		tracing.WithSpecAttributes(api.Name, api.SpecURL))
	defer span.End()

	log := logger.FromContext(ctx).With("api", api.Name)

	body, err := h.source.Fetch(ctx, api.SpecURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		metrics.SpecRewrites.WithLabelValues("unknown", "fetch_failed").Inc()
		log.Error("fetching upstream spec", "url", api.SpecURL, "error", err)
		writeText(w, http.StatusBadGateway, "Failed to process upstream spec: "+apperror.Message(err))
		return
	}

	res, err := rewrite.Rewrite(body, api.Name, rewrite.OriginFromRequest(r, h.trustForwardedHost))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rewrite failed")
		metrics.SpecRewrites.WithLabelValues("unknown", "invalid").Inc()
		log.Warn("rewriting upstream spec", "url", api.SpecURL, "error", err)
		if errors.Is(err, rewrite.ErrNotOpenAPI) {
			writeText(w, http.StatusBadGateway, err.Error())
			return
		}
		writeText(w, http.StatusBadGateway, "Failed to process upstream spec: "+err.Error())
		return
	}

	metrics.SpecRewrites.WithLabelValues(res.Kind, "ok").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}
