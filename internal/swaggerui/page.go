package swaggerui

import (
	_ "embed"
	"html/template"
	"io"
	"strings"
)

// DefaultAssetBase serves swagger-ui-dist from jsDelivr.
const DefaultAssetBase = "https://cdn.jsdelivr.net/npm/swagger-ui-dist@5"

// InitializerJS is a drop-in swagger-initializer.js for stock index.html
// pages. It applies the same configUrl/url precedence in the browser.
//
//go:embed swagger-initializer.js
var InitializerJS []byte

// Page renders the Swagger UI HTML page with resolved options inlined.
type Page struct {
	title     string
	assetBase string
}

// NewPage creates a page loading viewer assets from assetBase.
func NewPage(title, assetBase string) *Page {
	if assetBase == "" {
		assetBase = DefaultAssetBase
	}
	return &Page{
		title:     title,
		assetBase: strings.TrimRight(assetBase, "/"),
	}
}

type pageData struct {
	Title     string
	AssetBase string
	Options   Options
}

// Render writes the page for opts.
func (p *Page) Render(w io.Writer, opts Options) error {
	return pageTemplate.Execute(w, pageData{
		Title:     p.title,
		AssetBase: p.assetBase,
		Options:   opts,
	})
}

var pageTemplate = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="{{.AssetBase}}/swagger-ui.css">
  <style>
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="{{.AssetBase}}/swagger-ui-bundle.js"></script>
  <script src="{{.AssetBase}}/swagger-ui-standalone-preset.js"></script>
  <script>
    window.onload = function() {
      var opts = {{.Options}};
      var presets = {
        apis: SwaggerUIBundle.presets.apis,
        standalone: SwaggerUIStandalonePreset
      };
      opts.presets = opts.presets.map(function(name) { return presets[name]; });
      window.ui = SwaggerUIBundle(opts);
    };
  </script>
</body>
</html>`))
