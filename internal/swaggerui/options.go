// Package swaggerui builds the Swagger UI page and the options its
// initializer hands to SwaggerUIBundle.
package swaggerui

import "strings"

// Query parameter names the initializer understands.
const (
	ParamConfigURL = "configUrl"
	ParamURL       = "url"
)

// Preset names. The page maps them onto SwaggerUIBundle symbols.
const (
	PresetAPIs       = "apis"
	PresetStandalone = "standalone"
)

const (
	DefaultDomID  = "#swagger-ui"
	DefaultLayout = "StandaloneLayout"
)

// Options is the configuration record passed to the viewer constructor.
// At most one of ConfigURL and URL is set.
type Options struct {
	DomID       string   `json:"dom_id"`
	DeepLinking bool     `json:"deepLinking"`
	Presets     []string `json:"presets"`
	Layout      string   `json:"layout"`
	ConfigURL   *string  `json:"configUrl,omitempty"`
	URL         *string  `json:"url,omitempty"`
}

// BaseOptions returns the fixed part of the configuration.
func BaseOptions() Options {
	return Options{
		DomID:       DefaultDomID,
		DeepLinking: true,
		Presets:     []string{PresetAPIs, PresetStandalone},
		Layout:      DefaultLayout,
	}
}

// Resolve builds the options for a page requested with rawQuery.
// configUrl wins over url; with neither present the viewer uses its default.
func Resolve(rawQuery string) Options {
	opts := BaseOptions()

	if v, ok := QueryParam(rawQuery, ParamConfigURL); ok {
		opts.ConfigURL = &v
	} else if v, ok := QueryParam(rawQuery, ParamURL); ok {
		opts.URL = &v
	}
	return opts
}

// QueryParam returns the first value for key in rawQuery. Decoding follows
// URLSearchParams: '+' is a space and a '%' not followed by two hex digits
// is kept as-is, so every pair is usable.
func QueryParam(rawQuery, key string) (string, bool) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if unescape(k) == key {
			return unescape(v), true
		}
	}
	return "", false
}

func unescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

// Source returns the document the options point at and which parameter
// selected it. Both are empty when the viewer falls back to its default.
func (o Options) Source() (kind, target string) {
	switch {
	case o.ConfigURL != nil:
		return ParamConfigURL, *o.ConfigURL
	case o.URL != nil:
		return ParamURL, *o.URL
	default:
		return "", ""
	}
}
