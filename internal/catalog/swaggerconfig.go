package catalog

import (
	"net/url"
	"strings"
)

// Paths served by the gateway that the config documents and redirects use.
const (
	ExternalSpecsPath = "/external-specs/"
	SingleConfigPath  = "/swagger-config/single/"
	GroupConfigPath   = "/swagger-config/group/"
	UIIndexPath       = "/swagger-ui/index.html"
)

// URLEntry is one document in the Swagger UI "urls" dropdown.
type URLEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SwaggerConfig is the document Swagger UI loads through configUrl.
type SwaggerConfig struct {
	URLs            []URLEntry `json:"urls"`
	URLsPrimaryName string     `json:"urlsPrimaryName,omitempty"`
	Layout          string     `json:"layout"`
	DeepLinking     bool       `json:"deepLinking"`
	DocExpansion    string     `json:"docExpansion"`
}

func newSwaggerConfig(urls []URLEntry) SwaggerConfig {
	cfg := SwaggerConfig{
		URLs:         urls,
		Layout:       "StandaloneLayout",
		DeepLinking:  true,
		DocExpansion: "none",
	}
	if len(urls) > 0 {
		cfg.URLsPrimaryName = urls[0].Name
	}
	return cfg
}

// SingleConfig builds the config for one API. The name is not checked
// against the catalog; an unknown name fails later when the spec is fetched.
func SingleConfig(name string) SwaggerConfig {
	return newSwaggerConfig([]URLEntry{{
		Name: strings.ToUpper(name),
		URL:  ExternalSpecURL(name),
	}})
}

// GroupConfig builds the config listing every API in group.
func (c *Catalog) GroupConfig(group string) SwaggerConfig {
	apis := c.Group(group)
	urls := make([]URLEntry, 0, len(apis))
	for _, a := range apis {
		urls = append(urls, URLEntry{Name: a.Name, URL: ExternalSpecURL(a.Name)})
	}
	return newSwaggerConfig(urls)
}

// ExternalSpecURL is the gateway path serving the rewritten spec of name.
func ExternalSpecURL(name string) string {
	return ExternalSpecsPath + url.PathEscape(name)
}

// SingleRedirect is the UI location that opens the single-API config.
func SingleRedirect(name string) string {
	return uiWithConfig(SingleConfigPath + url.PathEscape(name))
}

// GroupRedirect is the UI location that opens the group config.
func GroupRedirect(group string) string {
	return uiWithConfig(GroupConfigPath + url.PathEscape(group))
}

func uiWithConfig(configURL string) string {
	return UIIndexPath + "?configUrl=" + url.QueryEscape(configURL)
}
