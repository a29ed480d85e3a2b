package catalog

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Index renders the HTML landing page listing every registered API.
type Index struct {
	title   string
	catalog *Catalog
	md      goldmark.Markdown
}

// NewIndex creates an index page for c.
func NewIndex(title string, c *Catalog) *Index {
	return &Index{
		title:   title,
		catalog: c,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type indexGroup struct {
	Name string
	Link string
	APIs []indexAPI
}

type indexAPI struct {
	Name        string
	Link        string
	SpecLink    string
	Description template.HTML
}

// Render writes the page. Ungrouped APIs are listed last.
func (x *Index) Render(w io.Writer) error {
	byGroup := lo.GroupBy(x.catalog.All(), func(a API) string { return strings.ToLower(a.Group) })

	keys := lo.Keys(byGroup)
	sort.Slice(keys, func(i, j int) bool {
		if (keys[i] == "") != (keys[j] == "") {
			return keys[j] == ""
		}
		return keys[i] < keys[j]
	})

	groups := make([]indexGroup, 0, len(keys))
	for _, key := range keys {
		members := byGroup[key]
		g := indexGroup{Name: members[0].Group}
		if key != "" {
			g.Link = "/docs/group/" + url.PathEscape(g.Name)
		}
		for _, a := range members {
			desc, err := x.renderMarkdown(a.Description)
			if err != nil {
				return fmt.Errorf("rendering description of %s: %w", a.Name, err)
			}
			g.APIs = append(g.APIs, indexAPI{
				Name:        a.Name,
				Link:        "/docs/" + url.PathEscape(a.Name),
				SpecLink:    ExternalSpecURL(a.Name),
				Description: desc,
			})
		}
		groups = append(groups, g)
	}

	return indexTemplate.Execute(w, struct {
		Title  string
		Groups []indexGroup
	}{x.title, groups})
}

func (x *Index) renderMarkdown(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := x.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// goldmark escapes raw HTML unless WithUnsafe is set.
	return template.HTML(buf.String()), nil
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; margin: 2rem auto; max-width: 60rem; color: #3b4151; }
    .api { border-left: 3px solid #49cc90; padding: 0 1rem; margin: 1rem 0; }
    .api a.spec { font-size: 0.85em; color: #888; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{- range .Groups}}
  <section>
    {{- if .Name}}
    <h2><a href="{{.Link}}">{{.Name}}</a></h2>
    {{- else}}
    <h2>Other APIs</h2>
    {{- end}}
    {{- range .APIs}}
    <div class="api">
      <h3><a href="{{.Link}}">{{.Name}}</a> <a class="spec" href="{{.SpecLink}}">spec</a></h3>
      {{.Description}}
    </div>
    {{- end}}
  </section>
  {{- else}}
  <p>No APIs registered.</p>
  {{- end}}
</body>
</html>`))
