package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/freema/docsgate/internal/apperror"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]API{
		{Name: "billing", Group: "core", SpecURL: "https://billing.internal/v3/api-docs", Description: "Invoices and **payments**"},
		{Name: "Users", Group: "Core", SpecURL: "https://users.internal/swagger.json"},
		{Name: "search", Group: "edge", SpecURL: "http://search.internal/openapi.yaml"},
		{Name: "legacy", SpecURL: "http://legacy.internal/spec"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		apis []API
	}{
		{"missing name", []API{{SpecURL: "https://x/spec"}}},
		{"missing spec url", []API{{Name: "a"}}},
		{"relative spec url", []API{{Name: "a", SpecURL: "/spec.json"}}},
		{"slash in name", []API{{Name: "a/b", SpecURL: "https://x/spec"}}},
		{"duplicate ignoring case", []API{
			{Name: "Billing", SpecURL: "https://x/spec"},
			{Name: "billing", SpecURL: "https://y/spec"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.apis)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	c := testCatalog(t)

	a, err := c.Lookup("BILLING")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if a.SpecURL != "https://billing.internal/v3/api-docs" {
		t.Errorf("SpecURL = %q", a.SpecURL)
	}

	_, err = c.Lookup("nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "Unknown API name: nope" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestGroup(t *testing.T) {
	c := testCatalog(t)

	core := c.Group("CORE")
	if len(core) != 2 || core[0].Name != "billing" || core[1].Name != "Users" {
		t.Errorf("Group(core) = %+v", core)
	}
	if got := c.Group("missing"); len(got) != 0 {
		t.Errorf("Group(missing) = %+v", got)
	}
	if c.Len() != 4 || len(c.All()) != 4 {
		t.Errorf("Len() = %d", c.Len())
	}
}

func TestSingleConfig(t *testing.T) {
	cfg := SingleConfig("billing")

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"urls":[{"name":"BILLING","url":"/external-specs/billing"}],"urlsPrimaryName":"BILLING","layout":"StandaloneLayout","deepLinking":true,"docExpansion":"none"}`
	if string(data) != want {
		t.Errorf("json = %s\nwant  %s", data, want)
	}
}

func TestSingleConfigUnknownName(t *testing.T) {
	cfg := SingleConfig("whatever")
	if len(cfg.URLs) != 1 || cfg.URLs[0].URL != "/external-specs/whatever" {
		t.Errorf("URLs = %+v", cfg.URLs)
	}
}

func TestGroupConfig(t *testing.T) {
	c := testCatalog(t)

	cfg := c.GroupConfig("core")
	if len(cfg.URLs) != 2 {
		t.Fatalf("URLs = %+v", cfg.URLs)
	}
	if cfg.URLs[1] != (URLEntry{Name: "Users", URL: "/external-specs/Users"}) {
		t.Errorf("URLs[1] = %+v", cfg.URLs[1])
	}
	if cfg.URLsPrimaryName != "billing" {
		t.Errorf("URLsPrimaryName = %q", cfg.URLsPrimaryName)
	}
}

func TestGroupConfigEmpty(t *testing.T) {
	c := testCatalog(t)

	data, err := json.Marshal(c.GroupConfig("nope"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "urlsPrimaryName") {
		t.Errorf("empty group must not set urlsPrimaryName: %s", data)
	}
	if !strings.Contains(string(data), `"urls":[]`) {
		t.Errorf("empty group should have empty urls array: %s", data)
	}
}

func TestRedirects(t *testing.T) {
	if got := SingleRedirect("billing"); got != "/swagger-ui/index.html?configUrl=%2Fswagger-config%2Fsingle%2Fbilling" {
		t.Errorf("SingleRedirect = %q", got)
	}
	if got := GroupRedirect("core"); got != "/swagger-ui/index.html?configUrl=%2Fswagger-config%2Fgroup%2Fcore" {
		t.Errorf("GroupRedirect = %q", got)
	}
}

func TestIndexRender(t *testing.T) {
	c := testCatalog(t)

	var buf bytes.Buffer
	if err := NewIndex("Gateway", c).Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<h1>Gateway</h1>",
		`href="/docs/group/core"`,
		`href="/docs/billing"`,
		`href="/external-specs/search"`,
		"<strong>payments</strong>",
		"Other APIs",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if strings.Index(html, "Other APIs") < strings.Index(html, `href="/docs/group/edge"`) {
		t.Error("ungrouped APIs should be listed last")
	}
}

func TestIndexEscapesDescriptionHTML(t *testing.T) {
	c, err := New([]API{{Name: "x", SpecURL: "https://x/spec", Description: "<script>alert(1)</script>"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf bytes.Buffer
	if err := NewIndex("t", c).Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "<script>alert(1)</script>") {
		t.Error("raw HTML in descriptions must not be rendered")
	}
}

func TestIndexEmpty(t *testing.T) {
	c, _ := New(nil)
	var buf bytes.Buffer
	if err := NewIndex("t", c).Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "No APIs registered.") {
		t.Error("expected empty message")
	}
}
