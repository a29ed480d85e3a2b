//go:build integration

package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

const defaultBaseURL = "http://localhost:8080"

func baseURL() string {
	if v := os.Getenv("DOCSGATE_TEST_URL"); v != "" {
		return v
	}
	return defaultBaseURL
}

// testAPI is a catalog entry the target instance is expected to have.
func testAPI() string {
	if v := os.Getenv("DOCSGATE_TEST_API"); v != "" {
		return v
	}
	return "petstore"
}

var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := noRedirect.Get(baseURL() + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// decodeJSON decodes a JSON response body into dst.
func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestHealth(t *testing.T) {
	resp := get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestSwaggerUIPrecedence(t *testing.T) {
	resp := get(t, "/swagger-ui/options?configUrl=/swagger-config/single/x&url=/v3/api-docs")
	var opts map[string]interface{}
	decodeJSON(t, resp, &opts)

	if opts["configUrl"] != "/swagger-config/single/x" {
		t.Errorf("configUrl = %v", opts["configUrl"])
	}
	if _, ok := opts["url"]; ok {
		t.Error("url must be unset when configUrl is present")
	}
}

func TestDocsRedirectChain(t *testing.T) {
	resp := get(t, "/docs/"+testAPI())
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/swagger-ui/index.html?configUrl=") {
		t.Fatalf("unexpected location %q", loc)
	}

	page := readBody(t, get(t, loc))
	if !strings.Contains(page, "/swagger-config/single/"+testAPI()) {
		t.Error("page does not reference the single config")
	}

	var cfg struct {
		URLs []struct {
			URL string `json:"url"`
		} `json:"urls"`
	}
	decodeJSON(t, get(t, "/swagger-config/single/"+testAPI()), &cfg)
	if len(cfg.URLs) != 1 {
		t.Fatalf("urls = %+v", cfg.URLs)
	}

	spec := get(t, cfg.URLs[0].URL)
	if spec.StatusCode != http.StatusOK {
		t.Fatalf("external spec: %d %s", spec.StatusCode, readBody(t, spec))
	}
	var doc map[string]interface{}
	decodeJSON(t, spec, &doc)
	if doc["openapi"] == nil && doc["swagger"] == nil {
		t.Error("rewritten spec has no version field")
	}
}

func TestUnknownExternalSpec(t *testing.T) {
	resp := get(t, "/external-specs/definitely-not-registered")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); body != "Unknown API name: definitely-not-registered" {
		t.Errorf("body = %q", body)
	}
}

func TestGatewayDocument(t *testing.T) {
	resp := get(t, "/v3/api-docs")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var doc map[string]interface{}
	decodeJSON(t, resp, &doc)
	if _, ok := doc["paths"].(map[string]interface{}); !ok {
		t.Error("document has no paths")
	}
}
