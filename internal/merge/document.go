package merge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/metrics"
	"github.com/freema/docsgate/internal/rewrite"
	"github.com/freema/docsgate/internal/upstream"
)

// Info overrides fields of the base document's info block when non-empty.
type Info struct {
	Title       string
	Version     string
	Description string
}

// DocumentConfig configures the gateway document.
type DocumentConfig struct {
	Info Info
	// ServerURL is the "Try it out" server used when no external spec is merged.
	ServerURL   string
	ExternalURL string
	Merge       Options
}

// Document builds the gateway's OpenAPI document, merging in an external
// spec when one is configured.
type Document struct {
	base   []byte
	cfg    DocumentConfig
	source upstream.Source
	merger *Merger
}

// NewDocument validates the base document and returns a builder.
func NewDocument(base []byte, cfg DocumentConfig, source upstream.Source) (*Document, error) {
	if _, err := openapi3.NewLoader().LoadFromData(base); err != nil {
		return nil, fmt.Errorf("loading base OpenAPI document: %w", err)
	}
	return &Document{
		base:   base,
		cfg:    cfg,
		source: source,
		merger: NewMerger(cfg.Merge),
	}, nil
}

// Build returns a fresh document. A failing external spec is logged and the
// local document is returned without it.
func (d *Document) Build(ctx context.Context) (*openapi3.T, error) {
	local, err := d.local()
	if err != nil {
		return nil, err
	}
	if d.cfg.ExternalURL == "" {
		return local, nil
	}

	log := logger.FromContext(ctx)
	log.Info("fetching external spec for merge", "url", d.cfg.ExternalURL)

	external, err := d.external(ctx)
	if err != nil {
		metrics.SpecMerges.WithLabelValues("failed").Inc()
		log.Error("failed to merge external spec", "url", d.cfg.ExternalURL, "error", err)
		return local, nil
	}

	stats := d.merger.Merge(local, external)
	metrics.SpecMerges.WithLabelValues("success").Inc()
	log.Info("external spec merged",
		"paths_before", stats.PathsBefore,
		"paths_after", stats.PathsAfter,
		"skipped", len(stats.Skipped),
	)
	return local, nil
}

func (d *Document) local() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(d.base)
	if err != nil {
		return nil, fmt.Errorf("loading base OpenAPI document: %w", err)
	}

	if doc.Info == nil {
		doc.Info = &openapi3.Info{}
	}
	if d.cfg.Info.Title != "" {
		doc.Info.Title = d.cfg.Info.Title
	}
	if d.cfg.Info.Version != "" {
		doc.Info.Version = d.cfg.Info.Version
	}
	if d.cfg.Info.Description != "" {
		doc.Info.Description = d.cfg.Info.Description
	}
	if d.cfg.ServerURL != "" {
		doc.Servers = openapi3.Servers{{URL: d.cfg.ServerURL}}
	}
	return doc, nil
}

func (d *Document) external(ctx context.Context) (*openapi3.T, error) {
	body, err := d.source.Fetch(ctx, d.cfg.ExternalURL)
	if err != nil {
		return nil, err
	}
	return ParseExternal(body)
}

// ParseExternal loads an OpenAPI 3 document, converting Swagger 2 input.
func ParseExternal(body []byte) (*openapi3.T, error) {
	data, err := rewrite.ToJSON(body)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Swagger string `json:"swagger"`
		OpenAPI string `json:"openapi"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("reading spec version: %w", err)
	}

	switch {
	case probe.OpenAPI != "":
		doc, err := openapi3.NewLoader().LoadFromData(data)
		if err != nil {
			return nil, fmt.Errorf("parsing OpenAPI 3 document: %w", err)
		}
		return doc, nil
	case probe.Swagger != "":
		var v2 openapi2.T
		if err := json.Unmarshal(data, &v2); err != nil {
			return nil, fmt.Errorf("parsing Swagger 2 document: %w", err)
		}
		doc, err := openapi2conv.ToV3(&v2)
		if err != nil {
			return nil, fmt.Errorf("converting Swagger 2 document: %w", err)
		}
		return doc, nil
	default:
		return nil, rewrite.ErrNotOpenAPI
	}
}
