// Package rewrite adapts upstream OpenAPI and Swagger documents so that
// requests made from Swagger UI are sent to the gateway under /{name}.
package rewrite

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document kinds.
const (
	KindOpenAPI3 = "openapi3"
	KindSwagger2 = "swagger2"
)

var (
	// ErrUnparseable means the body is neither JSON nor YAML.
	ErrUnparseable = errors.New("upstream spec is not valid JSON or YAML")
	// ErrNotOpenAPI means the body parsed but has no openapi/swagger field.
	ErrNotOpenAPI = errors.New("Upstream is not a valid OpenAPI/Swagger document")
)

// Result is a rewritten document, always encoded as JSON.
type Result struct {
	Kind string
	Body []byte
}

// Rewrite points the document in body at origin under the /{name} prefix.
// Key order of the upstream document is kept.
//
// OpenAPI 3 documents get a single server (the origin) and every path
// prefixed with /{name}; 3.1 documents are relabelled 3.0.3 for older UIs.
// Swagger 2 documents keep their paths and get host, basePath and schemes.
func Rewrite(body []byte, name string, origin Origin) (Result, error) {
	doc, err := decode(body)
	if err != nil {
		return Result{}, err
	}

	namePrefix := "/" + name

	var kind string
	switch {
	case present(doc, "openapi"):
		kind = KindOpenAPI3
		rewriteOpenAPI3(doc, namePrefix, origin)
	case present(doc, "swagger"):
		kind = KindSwagger2
		rewriteSwagger2(doc, namePrefix, origin)
	default:
		return Result{}, ErrNotOpenAPI
	}

	out, err := encodeJSON(doc)
	if err != nil {
		return Result{}, fmt.Errorf("encoding rewritten spec: %w", err)
	}
	return Result{Kind: kind, Body: out}, nil
}

func rewriteOpenAPI3(doc *yaml.Node, namePrefix string, origin Origin) {
	if v := mapGet(doc, "openapi"); v.Kind == yaml.ScalarNode && strings.HasPrefix(v.Value, "3.1") {
		mapSet(doc, "openapi", stringNode("3.0.3"))
	}

	mapSet(doc, "servers", &yaml.Node{
		Kind: yaml.SequenceNode,
		Tag:  "!!seq",
		Content: []*yaml.Node{{
			Kind:    yaml.MappingNode,
			Tag:     "!!map",
			Content: []*yaml.Node{stringNode("url"), stringNode(origin.String())},
		}},
	})

	paths := mapGet(doc, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode || len(paths.Content) == 0 {
		return
	}
	// A prefixed key can collide with one already under the prefix; the
	// later item wins and the first position is kept.
	prefixed := make([]*yaml.Node, 0, len(paths.Content))
	index := make(map[string]int, len(paths.Content)/2)
	for i := 0; i+1 < len(paths.Content); i += 2 {
		key := PrefixPath(scalarValue(paths.Content[i]), namePrefix)
		if at, ok := index[key]; ok {
			prefixed[at+1] = paths.Content[i+1]
			continue
		}
		index[key] = len(prefixed)
		prefixed = append(prefixed, stringNode(key), paths.Content[i+1])
	}
	paths.Content = prefixed
}

func rewriteSwagger2(doc *yaml.Node, namePrefix string, origin Origin) {
	mapSet(doc, "swagger", stringNode("2.0"))
	mapSet(doc, "host", stringNode(origin.HostPort()))
	mapSet(doc, "basePath", stringNode(namePrefix))
	mapSet(doc, "schemes", &yaml.Node{
		Kind:    yaml.SequenceNode,
		Tag:     "!!seq",
		Content: []*yaml.Node{stringNode(origin.Scheme)},
	})
}

// PrefixPath adds prefix to p exactly once. Paths already under prefix are
// returned unchanged and a missing leading slash is added.
func PrefixPath(p, prefix string) string {
	if p == prefix || strings.HasPrefix(p, prefix+"/") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return prefix + p
}

// ToJSON re-encodes a JSON or YAML document as JSON, keeping key order.
func ToJSON(body []byte) ([]byte, error) {
	doc, err := decode(body)
	if err != nil {
		return nil, err
	}
	return encodeJSON(doc)
}

// decode parses JSON, falling back to YAML. The top level must be a mapping.
func decode(body []byte) (*yaml.Node, error) {
	if doc, err := decodeJSON(body); err == nil {
		return doc, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, ErrUnparseable
	}
	return root, nil
}

func present(m *yaml.Node, key string) bool {
	v := mapGet(m, key)
	return v != nil && !(v.Kind == yaml.ScalarNode && v.ShortTag() == "!!null")
}

func mapGet(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if scalarValue(m.Content[i]) == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// mapSet replaces the value of key in place, appending the pair when absent.
func mapSet(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if scalarValue(m.Content[i]) == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, stringNode(key), value)
}

func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func scalarValue(n *yaml.Node) string {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n.Value
}
