// Package merge folds an external OpenAPI document into the gateway's own.
package merge

import (
	"regexp"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/samber/lo"
)

// Options control how external definitions are renamed on the way in.
type Options struct {
	TagPrefix    string
	PathPrefix   string
	SchemaPrefix string
	// PreferLocal keeps the local path item when both documents define a path.
	PreferLocal bool
}

// Stats summarizes a merge.
type Stats struct {
	PathsBefore int
	PathsAfter  int
	Skipped     []string
}

// Merger merges documents using fixed Options.
type Merger struct {
	opts Options
}

// NewMerger creates a merger.
func NewMerger(opts Options) *Merger {
	return &Merger{opts: opts}
}

var repeatedSlashes = regexp.MustCompile(`//+`)

// Merge copies tags, paths and component schemas from external into local
// and points local at the gateway root. local is modified in place.
func (m *Merger) Merge(local, external *openapi3.T) Stats {
	stats := Stats{PathsBefore: pathCount(local)}

	m.mergeTags(local, external)
	stats.Skipped = m.mergePaths(local, external)
	m.mergeSchemas(local, external)
	local.Servers = openapi3.Servers{{URL: "/"}}

	stats.PathsAfter = pathCount(local)
	return stats
}

func (m *Merger) mergeTags(local, external *openapi3.T) {
	if len(external.Tags) == 0 {
		return
	}
	names := lo.SliceToMap(local.Tags, func(t *openapi3.Tag) (string, bool) {
		return t.Name, true
	})
	for _, t := range external.Tags {
		name := m.opts.TagPrefix + t.Name
		if names[name] {
			continue
		}
		local.Tags = append(local.Tags, &openapi3.Tag{Name: name, Description: t.Description})
		names[name] = true
	}
}

func (m *Merger) mergePaths(local, external *openapi3.T) []string {
	if local.Paths == nil {
		local.Paths = openapi3.NewPaths()
	}
	if external.Paths == nil {
		return nil
	}

	ext := external.Paths.Map()
	raws := lo.Keys(ext)
	sort.Strings(raws)

	var skipped []string
	for _, raw := range raws {
		path := repeatedSlashes.ReplaceAllString(m.opts.PathPrefix+raw, "/")
		if m.opts.PreferLocal && local.Paths.Value(path) != nil {
			skipped = append(skipped, path)
			continue
		}

		item := ext[raw]
		for _, op := range item.Operations() {
			op.Tags = lo.Map(op.Tags, func(t string, _ int) string {
				return m.opts.TagPrefix + t
			})
		}
		local.Paths.Set(path, item)
	}
	return skipped
}

// mergeSchemas adds external component schemas. A name already used locally
// gets SchemaPrefix; existing local schemas are never replaced.
func (m *Merger) mergeSchemas(local, external *openapi3.T) {
	if external.Components == nil || len(external.Components.Schemas) == 0 {
		return
	}
	if local.Components == nil {
		local.Components = &openapi3.Components{}
	}
	if local.Components.Schemas == nil {
		local.Components.Schemas = make(openapi3.Schemas)
	}

	names := lo.Keys(external.Components.Schemas)
	sort.Strings(names)

	localSchemas := local.Components.Schemas
	for _, name := range names {
		newName := name
		if _, clash := localSchemas[name]; clash {
			newName = m.opts.SchemaPrefix + name
		}
		if _, exists := localSchemas[newName]; !exists {
			localSchemas[newName] = external.Components.Schemas[name]
		}
	}
}

func pathCount(doc *openapi3.T) int {
	if doc.Paths == nil {
		return 0
	}
	return doc.Paths.Len()
}
