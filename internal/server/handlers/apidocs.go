package handlers

import (
	"net/http"

	"github.com/freema/docsgate/internal/apperror"
	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/merge"
)

// APIDocsHandler serves the gateway's own OpenAPI document.
type APIDocsHandler struct {
	doc *merge.Document
}

// NewAPIDocsHandler creates a handler serving doc.
func NewAPIDocsHandler(doc *merge.Document) *APIDocsHandler {
	return &APIDocsHandler{doc: doc}
}

// Spec builds the document on every request so external changes show up.
func (h *APIDocsHandler) Spec(w http.ResponseWriter, r *http.Request) {
	doc, err := h.doc.Build(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("building api document", "error", err)
		writeAppError(w, apperror.Internal("failed to build api document"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
