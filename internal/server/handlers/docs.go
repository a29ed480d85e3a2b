package handlers

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freema/docsgate/internal/apperror"
	"github.com/freema/docsgate/internal/catalog"
	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/metrics"
	"github.com/freema/docsgate/internal/swaggerui"
)

// DocsHandler serves the Swagger UI page, its configuration documents and
// the API index.
type DocsHandler struct {
	page    *swaggerui.Page
	catalog *catalog.Catalog
	index   *catalog.Index
}

// NewDocsHandler creates a docs handler for the APIs in c.
func NewDocsHandler(page *swaggerui.Page, c *catalog.Catalog, title string) *DocsHandler {
	return &DocsHandler{
		page:    page,
		catalog: c,
		index:   catalog.NewIndex(title, c),
	}
}

// SwaggerUI renders the viewer page with options resolved from the query.
func (h *DocsHandler) SwaggerUI(w http.ResponseWriter, r *http.Request) {
	opts := swaggerui.Resolve(r.URL.RawQuery)

	source, _ := opts.Source()
	if source == "" {
		source = "default"
	}
	metrics.UIPagesServed.WithLabelValues(source).Inc()

	var buf bytes.Buffer
	if err := h.page.Render(&buf, opts); err != nil {
		logger.FromContext(r.Context()).Error("rendering swagger ui page", "error", err)
		writeAppError(w, apperror.Internal("failed to render page"))
		return
	}
	writeHTML(w, buf.Bytes())
}

// Initializer serves swagger-initializer.js for stock index.html pages.
func (h *DocsHandler) Initializer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(swaggerui.InitializerJS)
}

// Options returns the options the page would be rendered with.
func (h *DocsHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, swaggerui.Resolve(r.URL.RawQuery))
}

// SingleRedirect sends the browser to the UI configured for one API.
func (h *DocsHandler) SingleRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, catalog.SingleRedirect(chi.URLParam(r, "name")), http.StatusFound)
}

// GroupRedirect sends the browser to the UI configured for an API group.
func (h *DocsHandler) GroupRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, catalog.GroupRedirect(chi.URLParam(r, "group")), http.StatusFound)
}

func (h *DocsHandler) SingleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.SingleConfig(chi.URLParam(r, "name")))
}

func (h *DocsHandler) GroupConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.GroupConfig(chi.URLParam(r, "group")))
}

// Index lists every registered API.
func (h *DocsHandler) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.index.Render(&buf); err != nil {
		logger.FromContext(r.Context()).Error("rendering api index", "error", err)
		writeAppError(w, apperror.Internal("failed to render index"))
		return
	}
	writeHTML(w, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
