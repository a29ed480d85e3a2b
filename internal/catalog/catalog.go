// Package catalog holds the registered upstream APIs and builds the
// Swagger UI configuration documents that point at their rewritten specs.
package catalog

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/freema/docsgate/internal/apperror"
)

// API is one upstream service with an OpenAPI or Swagger document.
type API struct {
	Name        string `json:"name" validate:"required,excludesall=/?#"`
	Group       string `json:"group,omitempty"`
	SpecURL     string `json:"spec_url" validate:"required,http_url"`
	Description string `json:"description,omitempty"`
}

var validate = validator.New()

// Catalog is an immutable, ordered set of APIs. Names are unique ignoring case.
type Catalog struct {
	apis   []API
	byName map[string]API
}

// New validates apis and builds a catalog preserving their order.
func New(apis []API) (*Catalog, error) {
	c := &Catalog{
		apis:   make([]API, 0, len(apis)),
		byName: make(map[string]API, len(apis)),
	}
	for i, a := range apis {
		if err := validate.Struct(a); err != nil {
			return nil, apperror.Validation("api[%d] %q: %v", i, a.Name, err)
		}
		key := strings.ToLower(a.Name)
		if _, dup := c.byName[key]; dup {
			return nil, apperror.Validation("api[%d]: duplicate name %q", i, a.Name)
		}
		c.byName[key] = a
		c.apis = append(c.apis, a)
	}
	return c, nil
}

// Lookup finds an API by name, ignoring case.
func (c *Catalog) Lookup(name string) (API, error) {
	a, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return API{}, apperror.NotFound("Unknown API name: %s", name)
	}
	return a, nil
}

// Group returns the APIs whose group matches, ignoring case, in catalog order.
func (c *Catalog) Group(group string) []API {
	return lo.Filter(c.apis, func(a API, _ int) bool {
		return strings.EqualFold(a.Group, group)
	})
}

// All returns every API in catalog order.
func (c *Catalog) All() []API {
	return append([]API(nil), c.apis...)
}

// Len returns the number of registered APIs.
func (c *Catalog) Len() int {
	return len(c.apis)
}
