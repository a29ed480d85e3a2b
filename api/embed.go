package api

import _ "embed"

// OpenAPISpec is the gateway's own OpenAPI document. External specs are
// merged into a copy of it at request time.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
